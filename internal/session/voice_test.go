package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yojihun/tutor-demo/internal/provider"
	"github.com/yojihun/tutor-demo/internal/recording"
)

type scriptedHandle struct {
	chunks [][]byte
	stream chan []byte
}

func (h *scriptedHandle) Start() (<-chan []byte, error) {
	h.stream = make(chan []byte, len(h.chunks))
	for _, c := range h.chunks {
		h.stream <- c
	}
	return h.stream, nil
}

func (h *scriptedHandle) Stop() error {
	close(h.stream)
	return nil
}

type scriptedDevice struct {
	handle recording.CaptureHandle
	err    error
}

func (d *scriptedDevice) Acquire(ctx context.Context) (recording.CaptureHandle, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.handle, nil
}

func TestController_RecordedVoiceTurnReachesTranscript(t *testing.T) {
	dev := &scriptedDevice{handle: &scriptedHandle{chunks: [][]byte{[]byte("aud"), []byte("io")}}}
	c := NewController(&fakeCreds{}, provider.NewMock()).WithCapture(dev)
	if err := c.SelectLevel(provider.LevelA1); err != nil {
		t.Fatalf("select level: %v", err)
	}

	if err := c.StartRecording(context.Background()); err != nil {
		t.Fatalf("start recording: %v", err)
	}
	if !c.Recording() {
		t.Fatalf("expected active recording")
	}
	c.StopRecording()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(c.Messages()) < 3 {
		time.Sleep(2 * time.Millisecond)
	}
	msgs := c.Messages()
	if len(msgs) != 3 {
		t.Fatalf("voice turn never landed: %+v", msgs)
	}
	if msgs[1].Text != "(Voice Message)" || msgs[2].Text != provider.VoiceAcknowledgment {
		t.Fatalf("unexpected voice turn: %+v", msgs[1:])
	}
}

func TestController_RecordingRequiresChatScene(t *testing.T) {
	dev := &scriptedDevice{handle: &scriptedHandle{}}
	c := NewController(&fakeCreds{}, provider.NewMock()).WithCapture(dev)
	if err := c.StartRecording(context.Background()); !errors.Is(err, ErrWrongScene) {
		t.Fatalf("expected ErrWrongScene, got %v", err)
	}
}

func TestController_RecordingWithoutDeviceIsPermissionError(t *testing.T) {
	c := NewController(&fakeCreds{}, provider.NewMock())
	if err := c.SelectLevel(provider.LevelB1); err != nil {
		t.Fatalf("select level: %v", err)
	}
	if err := c.StartRecording(context.Background()); !errors.Is(err, recording.ErrPermission) {
		t.Fatalf("expected ErrPermission, got %v", err)
	}
	// stop with nothing active stays a no-op
	c.StopRecording()
}

func TestController_DeniedCaptureDoesNotTouchTranscript(t *testing.T) {
	dev := &scriptedDevice{err: errors.New("denied")}
	c := NewController(&fakeCreds{}, provider.NewMock()).WithCapture(dev)
	if err := c.SelectLevel(provider.LevelB1); err != nil {
		t.Fatalf("select level: %v", err)
	}
	before := len(c.Messages())
	if err := c.StartRecording(context.Background()); !errors.Is(err, recording.ErrPermission) {
		t.Fatalf("expected ErrPermission, got %v", err)
	}
	if len(c.Messages()) != before {
		t.Fatalf("permission failure mutated the transcript")
	}
}
