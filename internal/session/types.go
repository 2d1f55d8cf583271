package session

import (
	"context"
	"errors"

	"github.com/yojihun/tutor-demo/internal/provider"
	"github.com/yojihun/tutor-demo/internal/transcript"
)

// Scene is the current phase of the practice flow.
type Scene string

const (
	SceneSelection Scene = "selection"
	SceneChat      Scene = "chat"
	SceneReport    Scene = "report"
)

// Mode selects the reply path: canned replies or remote generation.
type Mode string

const (
	ModeDemo Mode = "demo"
	ModeLive Mode = "live"
)

// FeedbackReport is the report-scene content, rebuilt on every session end
// and discarded on restart.
type FeedbackReport struct {
	TranscriptText string `json:"transcript"`
	FeedbackText   string `json:"feedback"`
}

var (
	// ErrEmptyInput reports a blank or missing turn input.
	ErrEmptyInput = errors.New("session: empty turn input")
	// ErrWrongScene reports an operation invoked outside its scene.
	ErrWrongScene = errors.New("session: operation not valid in current scene")
)

// Provider produces one tutor reply per turn.
type Provider interface {
	Generate(ctx context.Context, level provider.Level, input provider.TurnInput) (string, error)
}

// FeedbackProvider analyzes a finished conversation rendered as
// "sender: text" lines.
type FeedbackProvider interface {
	Feedback(ctx context.Context, level provider.Level, conversation string) (string, error)
}

// Credentials exposes the current API credential; mode is derived from it on
// every read.
type Credentials interface {
	Get() string
}

// Speaker voices tutor replies.
type Speaker interface {
	Speak(text string)
}

// Notifier receives rendering-surface notifications. The controller never
// reads rendering state back.
type Notifier interface {
	SceneChanged(scene Scene)
	MessageAppended(msg transcript.Message)
	ReportReady(report FeedbackReport)
}

type nopSpeaker struct{}

func (nopSpeaker) Speak(string) {}

type nopNotifier struct{}

func (nopNotifier) SceneChanged(Scene)                 {}
func (nopNotifier) MessageAppended(transcript.Message) {}
func (nopNotifier) ReportReady(FeedbackReport)         {}
