// Package provider produces tutor replies for a single conversation turn,
// either from a local canned set or from the remote generative-language API.
package provider

import (
	"fmt"
	"strings"
)

// Level is a CEFR proficiency band.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// ParseLevel validates a level tag from user input.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2:
		return l, nil
	default:
		return "", fmt.Errorf("unknown CEFR level %q", s)
	}
}

// AudioPayload is an opaque encoded recording plus its declared MIME type.
// The content is never interpreted locally.
type AudioPayload struct {
	Data     []byte
	MIMEType string
}

// TurnInput carries exactly one of Text or Audio for a single turn.
// Supplying both or neither is a caller error.
type TurnInput struct {
	Text  string
	Audio *AudioPayload
}

// ErrorKind distinguishes transport failures from unusable responses.
type ErrorKind string

const (
	KindNetwork   ErrorKind = "network"
	KindMalformed ErrorKind = "malformed_response"
)

// Error is a failed generation or feedback call.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("provider: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
