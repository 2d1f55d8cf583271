package transcript

import (
	"strings"
	"sync"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message is one chat bubble. Immutable after creation.
type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Store is the append-only message log for one practice session. Appends may
// come from reply goroutines, so access is serialized internally.
type Store struct {
	mu       sync.Mutex
	messages []Message
}

func NewStore() *Store {
	return &Store{}
}

// Append adds a message at the end of the log.
func (s *Store) Append(m Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

// All returns a copy of the log in insertion order.
func (s *Store) All() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Clear drops every message. Used only on session reset.
func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

// Render formats the transcript for the report scene, one "You:"/"AI:" block
// per message.
func (s *Store) Render() string {
	var b strings.Builder
	for i, m := range s.All() {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if m.Sender == SenderUser {
			b.WriteString("You: ")
		} else {
			b.WriteString("AI: ")
		}
		b.WriteString(m.Text)
	}
	return b.String()
}

// Conversation formats the transcript as "sender: text" lines for the
// feedback prompt.
func (s *Store) Conversation() string {
	var b strings.Builder
	for i, m := range s.All() {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(string(m.Sender))
		b.WriteString(": ")
		b.WriteString(m.Text)
	}
	return b.String()
}
