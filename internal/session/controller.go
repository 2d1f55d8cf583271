// Package session owns the scene state machine and turn sequencing for one
// practice conversation at a time.
package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yojihun/tutor-demo/internal/export"
	"github.com/yojihun/tutor-demo/internal/provider"
	"github.com/yojihun/tutor-demo/internal/recording"
	"github.com/yojihun/tutor-demo/internal/transcript"
)

const (
	greetingTemplate = "Welcome! I'm your Level %s English Tutor. Let's practice!"

	// voiceMessageLabel stands in for demo-mode voice turns,
	// voiceInputLabel for live ones. No speech transcript is available.
	voiceMessageLabel = "(Voice Message)"
	voiceInputLabel   = "(Voice Input)"

	textErrorReply  = "Error connecting to AI. Please check your API key."
	voiceErrorReply = "Error processing voice input."

	feedbackUnavailable = "Feedback is only available with a valid API Key."
	feedbackError       = "Error generating feedback."
)

// Controller sequences the selection -> chat -> report flow, routing turns to
// the mock or remote provider and fanning side effects out to the speech gate
// and the rendering surface.
type Controller struct {
	store    *transcript.Store
	creds    Credentials
	mock     Provider
	remote   Provider
	feedback FeedbackProvider
	speaker  Speaker
	notifier Notifier
	recorder *recording.Pipeline

	mu        sync.Mutex
	scene     Scene
	level     provider.Level
	sessionID string
	report    *FeedbackReport
}

// NewController builds a controller starting in the selection scene. The mock
// provider is mandatory; remote generation, voice capture, speech output and
// notifications are attached via the With* methods.
func NewController(creds Credentials, mock Provider) *Controller {
	return &Controller{
		store:    transcript.NewStore(),
		creds:    creds,
		mock:     mock,
		speaker:  nopSpeaker{},
		notifier: nopNotifier{},
		scene:    SceneSelection,
	}
}

// WithRemote attaches the live generation and feedback paths.
func (c *Controller) WithRemote(p Provider, f FeedbackProvider) *Controller {
	c.remote = p
	c.feedback = f
	return c
}

// WithCapture attaches a capture device; finalized recordings are submitted
// as voice turns.
func (c *Controller) WithCapture(device recording.CaptureDevice) *Controller {
	c.recorder = recording.NewPipeline(device, func(p provider.AudioPayload) {
		if _, err := c.SubmitAudio(context.Background(), p); err != nil {
			log.Printf("session: voice turn rejected: %v", err)
		}
	})
	return c
}

// WithSpeaker attaches the speech output gate.
func (c *Controller) WithSpeaker(s Speaker) *Controller {
	if s != nil {
		c.speaker = s
	}
	return c
}

// WithNotifier attaches the rendering surface.
func (c *Controller) WithNotifier(n Notifier) *Controller {
	if n != nil {
		c.notifier = n
	}
	return c
}

// Scene returns the current scene.
func (c *Controller) Scene() Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scene
}

// Level returns the selected level, or "" in the selection scene.
func (c *Controller) Level() provider.Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// SessionID identifies the active session, or "" before level selection.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Messages returns the transcript so far, in order.
func (c *Controller) Messages() []transcript.Message {
	return c.store.All()
}

// Mode derives the reply path from the credential on every read: live iff a
// non-empty key is set.
func (c *Controller) Mode() Mode {
	if c.creds != nil && c.creds.Get() != "" {
		return ModeLive
	}
	return ModeDemo
}

// SelectLevel enters the chat scene with a fresh transcript and greets the
// student as the first AI turn.
func (c *Controller) SelectLevel(level provider.Level) error {
	c.mu.Lock()
	if c.scene != SceneSelection {
		c.mu.Unlock()
		return ErrWrongScene
	}
	c.scene = SceneChat
	c.level = level
	c.sessionID = uuid.NewString()
	c.report = nil
	c.mu.Unlock()

	c.store.Clear()
	c.notifier.SceneChanged(SceneChat)
	c.appendAI(fmt.Sprintf(greetingTemplate, level))
	return nil
}

// SubmitText runs one typed turn. The user message is committed before the
// reply is requested, so readers always see the user turn first. The returned
// channel closes once the reply message (or its fixed-text failure
// substitute) has been appended.
func (c *Controller) SubmitText(ctx context.Context, text string) (<-chan struct{}, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	c.mu.Lock()
	if c.scene != SceneChat {
		c.mu.Unlock()
		return nil, ErrWrongScene
	}
	level := c.level
	c.mu.Unlock()

	c.appendUser(text)
	prov := c.replyProvider()

	done := make(chan struct{})
	go func() {
		defer close(done)
		reply, err := prov.Generate(ctx, level, provider.TurnInput{Text: text})
		if err != nil {
			log.Printf("session: generate failed: %v", err)
			c.appendAI(textErrorReply)
			return
		}
		c.appendAI(reply)
	}()
	return done, nil
}

// SubmitAudio runs one voice turn with a finalized recording. In demo mode
// the turn short-circuits to the fixed voice acknowledgment; live turns carry
// the payload to the remote provider untouched.
func (c *Controller) SubmitAudio(ctx context.Context, payload provider.AudioPayload) (<-chan struct{}, error) {
	if len(payload.Data) == 0 {
		return nil, ErrEmptyInput
	}
	c.mu.Lock()
	if c.scene != SceneChat {
		c.mu.Unlock()
		return nil, ErrWrongScene
	}
	level := c.level
	c.mu.Unlock()

	prov := c.replyProvider()
	label := voiceInputLabel
	if prov == c.mock {
		label = voiceMessageLabel
	}
	c.appendUser(label)

	done := make(chan struct{})
	go func() {
		defer close(done)
		reply, err := prov.Generate(ctx, level, provider.TurnInput{Audio: &payload})
		if err != nil {
			log.Printf("session: voice generate failed: %v", err)
			c.appendAI(voiceErrorReply)
			return
		}
		c.appendAI(reply)
	}()
	return done, nil
}

// StartRecording begins voice capture for the current chat. Fails with
// recording.ErrPermission when no capture device was granted.
func (c *Controller) StartRecording(ctx context.Context) error {
	if c.Scene() != SceneChat {
		return ErrWrongScene
	}
	if c.recorder == nil {
		return fmt.Errorf("%w: no capture device available", recording.ErrPermission)
	}
	return c.recorder.Start(ctx)
}

// StopRecording finalizes the active capture; the payload is submitted as a
// voice turn once assembly completes. A no-op when nothing is recording.
func (c *Controller) StopRecording() {
	if c.recorder != nil {
		c.recorder.Stop()
	}
}

// Recording reports whether voice capture is active.
func (c *Controller) Recording() bool {
	return c.recorder != nil && c.recorder.Recording()
}

// EndSession freezes the transcript and enters the report scene. Feedback is
// generated asynchronously in live mode and replaced with a fixed note in
// demo mode; either way the returned channel closes once the report is
// complete. Failures become a fixed-text report, never an error.
func (c *Controller) EndSession(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	if c.scene != SceneChat {
		c.mu.Unlock()
		return nil, ErrWrongScene
	}
	c.scene = SceneReport
	level := c.level
	c.mu.Unlock()

	c.notifier.SceneChanged(SceneReport)
	rendered := c.store.Render()
	done := make(chan struct{})

	if c.Mode() == ModeDemo || c.feedback == nil {
		c.setReport(FeedbackReport{TranscriptText: rendered, FeedbackText: feedbackUnavailable})
		close(done)
		return done, nil
	}

	conversation := c.store.Conversation()
	go func() {
		defer close(done)
		text, err := c.feedback.Feedback(ctx, level, conversation)
		if err != nil {
			log.Printf("session: feedback failed: %v", err)
			text = feedbackError
		}
		c.setReport(FeedbackReport{TranscriptText: rendered, FeedbackText: text})
	}()
	return done, nil
}

// Report returns the current report; ok is false before feedback has landed
// or outside the report scene.
func (c *Controller) Report() (FeedbackReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scene != SceneReport || c.report == nil {
		return FeedbackReport{}, false
	}
	return *c.report, true
}

// ExportPayload assembles the sheet row for the finished session.
func (c *Controller) ExportPayload() (export.Payload, error) {
	c.mu.Lock()
	if c.scene != SceneReport || c.report == nil {
		c.mu.Unlock()
		return export.Payload{}, ErrWrongScene
	}
	level, id, feedbackText := c.level, c.sessionID, c.report.FeedbackText
	c.mu.Unlock()

	return export.Payload{
		Date:      time.Now(),
		SessionID: id,
		Level:     level,
		Messages:  c.store.All(),
		Feedback:  feedbackText,
	}, nil
}

// Restart discards the finished session and returns to level selection. The
// credential, and with it the mode, survives.
func (c *Controller) Restart() error {
	return c.reset(SceneReport)
}

// GoBack abandons the chat without producing a report.
func (c *Controller) GoBack() error {
	return c.reset(SceneChat)
}

func (c *Controller) reset(from Scene) error {
	c.mu.Lock()
	if c.scene != from {
		c.mu.Unlock()
		return ErrWrongScene
	}
	c.scene = SceneSelection
	c.level = ""
	c.sessionID = ""
	c.report = nil
	c.mu.Unlock()

	c.store.Clear()
	c.notifier.SceneChanged(SceneSelection)
	return nil
}

// replyProvider picks the provider for the current mode. The mock covers
// both demo mode and a missing remote wiring.
func (c *Controller) replyProvider() Provider {
	if c.Mode() == ModeLive && c.remote != nil {
		return c.remote
	}
	return c.mock
}

func (c *Controller) appendUser(text string) {
	m := transcript.Message{Sender: transcript.SenderUser, Text: text}
	c.store.Append(m)
	c.notifier.MessageAppended(m)
}

func (c *Controller) appendAI(text string) {
	m := transcript.Message{Sender: transcript.SenderAI, Text: text}
	c.store.Append(m)
	c.notifier.MessageAppended(m)
	c.speaker.Speak(text)
}

func (c *Controller) setReport(r FeedbackReport) {
	c.mu.Lock()
	c.report = &r
	c.mu.Unlock()
	c.notifier.ReportReady(r)
}
