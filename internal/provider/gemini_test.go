package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type staticKey string

func (k staticKey) Get() string { return string(k) }

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g := NewGemini(staticKey("key"), "test-model")
	g.BaseURL = srv.URL
	return g
}

func TestGemini_NoKey(t *testing.T) {
	g := NewGemini(staticKey(""), "")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := g.Generate(ctx, LevelB1, TurnInput{Text: "hi"}); err == nil {
		t.Fatalf("expected error with missing key")
	}
}

func TestGemini_TextRequestShape(t *testing.T) {
	var got geminiRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "test-model:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "key" {
			t.Errorf("api key not passed in query")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":" Hello there. "}]}}]}`))
	})

	reply, err := g.Generate(context.Background(), LevelA2, TurnInput{Text: "Hello"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply != "Hello there." {
		t.Fatalf("expected trimmed reply, got %q", reply)
	}
	if got.SystemInstruction == nil || len(got.SystemInstruction.Parts) != 1 {
		t.Fatalf("missing system instruction: %+v", got)
	}
	if !strings.Contains(got.SystemInstruction.Parts[0].Text, "CEFR level A2") {
		t.Fatalf("system instruction not parameterized by level: %q", got.SystemInstruction.Parts[0].Text)
	}
	if len(got.Contents) != 1 || len(got.Contents[0].Parts) != 1 || got.Contents[0].Parts[0].Text != "Hello" {
		t.Fatalf("unexpected contents: %+v", got.Contents)
	}
}

func TestGemini_AudioRequestShape(t *testing.T) {
	var got geminiRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"I heard that."}]}}]}`))
	})

	audio := []byte{0x1a, 0x45, 0xdf, 0xa3}
	_, err := g.Generate(context.Background(), LevelB1, TurnInput{Audio: &AudioPayload{Data: audio, MIMEType: "audio/webm"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	parts := got.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected inline data part plus companion text, got %d parts", len(parts))
	}
	if parts[0].InlineData == nil || parts[0].InlineData.MIMEType != "audio/webm" {
		t.Fatalf("missing inline audio data: %+v", parts[0])
	}
	if parts[0].InlineData.Data != base64.StdEncoding.EncodeToString(audio) {
		t.Fatalf("audio payload not base64 encoded verbatim")
	}
	if parts[1].Text != audioCompanionText {
		t.Fatalf("companion text %q", parts[1].Text)
	}
}

func TestGemini_FeedbackPrompt(t *testing.T) {
	var got geminiRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Good effort!"}]}}]}`))
	})

	fb, err := g.Feedback(context.Background(), LevelC1, "user: helo\nai: Hello!")
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if fb != "Good effort!" {
		t.Fatalf("feedback %q", fb)
	}
	prompt := got.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "level C1") || !strings.Contains(prompt, "user: helo") {
		t.Fatalf("feedback prompt missing level or conversation: %q", prompt)
	}
	if !strings.Contains(prompt, "3 major mistakes") {
		t.Fatalf("feedback prompt missing instruction: %q", prompt)
	}
}

func TestGemini_FailureTaxonomy(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		kind    ErrorKind
	}{
		{"status_non_2xx", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(500)
			_, _ = w.Write([]byte("oops"))
		}, KindNetwork},
		{"bad_json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not-json"))
		}, KindMalformed},
		{"no_candidates", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}, KindMalformed},
		{"no_parts", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[]}}]}`))
		}, KindMalformed},
		{"empty_text", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":""}]}}]}`))
		}, KindMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGemini(t, tc.handler)
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_, err := g.Generate(ctx, LevelB1, TurnInput{Text: "hi"})
			if err == nil {
				t.Fatalf("expected error; got nil")
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *provider.Error, got %T: %v", err, err)
			}
			if perr.Kind != tc.kind {
				t.Fatalf("kind %q want %q", perr.Kind, tc.kind)
			}
		})
	}
}

func TestGemini_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close() // connection refused from here on

	g := NewGemini(staticKey("key"), "")
	g.BaseURL = addr
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := g.Generate(ctx, LevelB1, TurnInput{Text: "hi"})
	var perr *Error
	if !errors.As(err, &perr) || perr.Kind != KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}
