// Package speech gates tutor replies into a platform speech-synthesis
// capability.
package speech

import (
	"context"
	"log"
	"strings"
	"sync"
)

// PreferredVoice is matched against available synthesis voices; when absent
// the platform default is used.
const PreferredVoice = "Google US English"

// Synthesizer is the platform speech-synthesis capability. Speak blocks
// until the utterance finishes or ctx is cancelled.
type Synthesizer interface {
	Voices() []string
	Speak(ctx context.Context, text, voice string) error
}

// Gate is the speaker toggle in front of synthesis. Enabled by default; at
// most one utterance plays at a time, newest wins.
type Gate struct {
	synth Synthesizer

	mu      sync.Mutex
	enabled bool
	cancel  context.CancelFunc
}

func NewGate(synth Synthesizer) *Gate {
	return &Gate{synth: synth, enabled: true}
}

// Speak voices text, cancelling any utterance still playing. A no-op while
// the gate is disabled or when no synthesizer is available.
func (g *Gate) Speak(text string) {
	g.mu.Lock()
	if !g.enabled || g.synth == nil {
		g.mu.Unlock()
		return
	}
	if g.cancel != nil {
		g.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	voice := pickVoice(g.synth.Voices())
	g.mu.Unlock()

	go func() {
		if err := g.synth.Speak(ctx, text, voice); err != nil && ctx.Err() == nil {
			log.Printf("speech: synthesis failed: %v", err)
		}
	}()
}

// Enabled reports the current toggle state.
func (g *Gate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

// SetEnabled flips the toggle. Turning it off cancels the in-flight
// utterance immediately; re-enabling does not replay it.
func (g *Gate) SetEnabled(on bool) {
	g.mu.Lock()
	g.enabled = on
	var cancel context.CancelFunc
	if !on {
		cancel = g.cancel
		g.cancel = nil
	}
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func pickVoice(voices []string) string {
	for _, v := range voices {
		if strings.Contains(v, PreferredVoice) {
			return v
		}
	}
	return ""
}
