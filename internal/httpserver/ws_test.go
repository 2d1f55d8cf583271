package httpserver

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHub_StreamsSessionEvents(t *testing.T) {
	srv, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	postJSON(t, srv.URL+"/session/level", `{"level":"A1"}`)

	var sawScene, sawGreeting bool
	deadline := time.Now().Add(2 * time.Second)
	for (!sawScene || !sawGreeting) && time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		switch ev.Type {
		case "scene":
			if ev.Scene == "chat" {
				sawScene = true
			}
		case "message":
			if ev.Message != nil && strings.HasPrefix(ev.Message.Text, "Welcome!") {
				sawGreeting = true
			}
		}
	}
	if !sawScene || !sawGreeting {
		t.Fatalf("missing events: scene=%v greeting=%v", sawScene, sawGreeting)
	}
}

func TestHub_DisconnectedClientIsDropped(t *testing.T) {
	srv, h := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	// broadcasting after the client left must not wedge the controller
	postJSON(t, srv.URL+"/session/level", `{"level":"B1"}`)
	postJSON(t, srv.URL+"/session/message", `{"text":"still works"}`)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		h.Hub.mu.Lock()
		n := len(h.Hub.conns)
		h.Hub.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("stale connection never dropped")
}
