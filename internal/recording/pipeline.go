// Package recording drives the start/stop/finalize lifecycle of voice
// recordings over a platform capture capability.
package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/yojihun/tutor-demo/internal/provider"
)

// ErrPermission reports that the capture device could not be acquired.
var ErrPermission = errors.New("recording: capture permission denied")

// MIMEType is the fixed encoding of finalized payloads.
const MIMEType = "audio/webm"

// CaptureDevice acquires the platform audio-capture handle. Acquisition may
// block on a user permission prompt.
type CaptureDevice interface {
	Acquire(ctx context.Context) (CaptureHandle, error)
}

// CaptureHandle is one granted capture stream, reused across recordings.
// Start begins a recording and returns its chunk stream; Stop ends the
// recording and closes that stream.
type CaptureHandle interface {
	Start() (<-chan []byte, error)
	Stop() error
}

type state int

const (
	stateIdle state = iota
	stateCapturing
	stateFinalizing
)

// Pipeline runs at most one recording at a time. The capture handle is
// acquired lazily on first Start and kept for the life of the pipeline;
// each recording gets a fresh chunk buffer, concatenated into one payload
// on Stop and delivered through onPayload.
type Pipeline struct {
	device    CaptureDevice
	onPayload func(provider.AudioPayload)

	mu     sync.Mutex
	st     state
	handle CaptureHandle
	chunks <-chan []byte
}

func NewPipeline(device CaptureDevice, onPayload func(provider.AudioPayload)) *Pipeline {
	return &Pipeline{device: device, onPayload: onPayload}
}

// Start begins a recording. A no-op while a recording is active or still
// finalizing. Acquisition failure leaves the pipeline idle and wraps
// ErrPermission.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st != stateIdle {
		return nil
	}
	if p.handle == nil {
		h, err := p.device.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPermission, err)
		}
		p.handle = h
	}
	ch, err := p.handle.Start()
	if err != nil {
		return err
	}
	p.st = stateCapturing
	p.chunks = ch
	return nil
}

// Stop finalizes the active recording. A no-op when nothing is capturing.
// Assembly runs asynchronously; the payload reaches onPayload once the chunk
// stream closes, after which the pipeline is idle again.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.st != stateCapturing {
		p.mu.Unlock()
		return
	}
	p.st = stateFinalizing
	handle, ch := p.handle, p.chunks
	p.chunks = nil
	p.mu.Unlock()

	go func() {
		if err := handle.Stop(); err != nil {
			log.Printf("recording: stop failed: %v", err)
		}
		var buf bytes.Buffer
		for c := range ch {
			buf.Write(c)
		}
		p.mu.Lock()
		p.st = stateIdle
		p.mu.Unlock()
		if p.onPayload != nil {
			p.onPayload(provider.AudioPayload{Data: buf.Bytes(), MIMEType: MIMEType})
		}
	}()
}

// Recording reports whether a capture is active.
func (p *Pipeline) Recording() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st == stateCapturing
}
