package httpserver

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/yojihun/tutor-demo/internal/session"
	"github.com/yojihun/tutor-demo/internal/transcript"
)

// event is one frame on the rendering feed.
// Types: "scene", "message", "report".
type event struct {
	Type    string                  `json:"type"`
	Scene   session.Scene           `json:"scene,omitempty"`
	Message *transcript.Message     `json:"message,omitempty"`
	Report  *session.FeedbackReport `json:"report,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Allow any origin for local demo use; restrict in production
		return true
	},
}

// Hub fans session notifications out to connected rendering surfaces. It
// implements session.Notifier.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	// writeMu serializes frames; gorilla permits one concurrent writer per
	// connection and notifications arrive from reply goroutines.
	writeMu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// Serve upgrades the request and keeps the connection registered until the
// client goes away. Inbound frames are discarded; the feed is one-way.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return nil
	}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) broadcast(ev event) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	var failed []*websocket.Conn
	for _, conn := range conns {
		if err := conn.WriteJSON(ev); err != nil {
			failed = append(failed, conn)
		}
	}
	h.writeMu.Unlock()
	for _, conn := range failed {
		h.drop(conn)
	}
}

func (h *Hub) SceneChanged(s session.Scene) {
	h.broadcast(event{Type: "scene", Scene: s})
}

func (h *Hub) MessageAppended(m transcript.Message) {
	h.broadcast(event{Type: "message", Message: &m})
}

func (h *Hub) ReportReady(r session.FeedbackReport) {
	h.broadcast(event{Type: "report", Report: &r})
}
