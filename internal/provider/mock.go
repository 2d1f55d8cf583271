package provider

import (
	"context"
	"math/rand"
)

// VoiceAcknowledgment replaces the mock reply entirely when a voice turn
// arrives without a usable API key.
const VoiceAcknowledgment = "I heard you! (Enable API Key for real voice understanding)"

var mockReplies = []string{
	"That's interesting! Tell me more.",
	"I understand. How does that make you feel?",
	"Could you explain that in a different way?",
	"That is a great point.",
	"Let's discuss this further.",
}

// MockReplies returns the canned reply set.
func MockReplies() []string {
	out := make([]string, len(mockReplies))
	copy(out, mockReplies)
	return out
}

// Mock answers turns locally with canned conversational replies. It never
// fails and makes no external calls.
type Mock struct {
	pick func(n int) int
}

func NewMock() *Mock {
	return &Mock{pick: rand.Intn}
}

// Generate returns a random canned reply prefixed per the level band, or the
// fixed voice acknowledgment for audio turns.
func (m *Mock) Generate(_ context.Context, level Level, input TurnInput) (string, error) {
	if input.Audio != nil {
		return VoiceAcknowledgment, nil
	}
	return levelPrefix(level) + mockReplies[m.pick(len(mockReplies))], nil
}

// levelPrefix returns the band marker prepended to canned replies.
func levelPrefix(level Level) string {
	switch level {
	case LevelA1, LevelA2:
		return "(Simple English) "
	case LevelC1, LevelC2:
		return "(Advanced Analysis) "
	default:
		return ""
	}
}
