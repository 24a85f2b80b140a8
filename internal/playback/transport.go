// Package playback owns the transport synchronization state machine:
// play, pause, seek, live parameter edits and the polled progress
// indicator, kept consistent with an audio transport that may itself be
// paused, stopped or mid-render.
package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/ankits1802/finetune-api/internal/sequence"
)

// ErrPlayback is returned when the transport cannot start or resume.
var ErrPlayback = errors.New("playback error")

// Transport is the control surface of the sound-producing backend. Its
// clock is the sole source of truth for elapsed time while playing;
// UI-facing progress is a sampled projection of it, never an independent
// clock.
type Transport interface {
	// Start begins rendering seq from the given offset in seconds. It
	// must support starting mid-sequence at an arbitrary offset.
	Start(seq *sequence.NoteSequence, offsetSeconds float64) error
	// Stop halts sound and the clock.
	Stop()
	// Pause halts sound but preserves the clock position.
	Pause()
	// Resume continues a paused transport without restarting it.
	Resume() error
	// IsPlaying reports whether the transport is actively rendering.
	IsPlaying() bool
	// Seconds returns the transport clock position.
	Seconds() float64
	// SetSeconds moves the clock position while stopped or paused.
	SetSeconds(seconds float64)
	// SetRate sets the playback rate factor applied on the next Start
	// or Resume.
	SetRate(rate float64)
}

// ClockTransport is a timing-only Transport: it keeps a sample-accurate
// position without producing sound. It backs headless deployments where
// no MIDI device is available, and carries the clock arithmetic shared
// with the MIDI transport.
type ClockTransport struct {
	mu        sync.Mutex
	duration  float64
	base      float64
	rate      float64
	startedAt time.Time
	running   bool
	paused    bool
}

// NewClockTransport creates a stopped clock transport.
func NewClockTransport() *ClockTransport {
	return &ClockTransport{rate: 1}
}

func (t *ClockTransport) Start(seq *sequence.NoteSequence, offsetSeconds float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.duration = seq.Duration()
	t.base = offsetSeconds
	t.startedAt = time.Now()
	t.running = true
	t.paused = false
	return nil
}

func (t *ClockTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base = t.positionLocked()
	t.running = false
	t.paused = false
}

func (t *ClockTransport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.base = t.positionLocked()
	t.running = false
	t.paused = true
}

func (t *ClockTransport) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.paused {
		return errors.New("transport is not paused")
	}
	t.startedAt = time.Now()
	t.running = true
	t.paused = false
	return nil
}

func (t *ClockTransport) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return false
	}
	return t.duration <= 0 || t.positionLocked() < t.duration
}

func (t *ClockTransport) Seconds() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked()
}

func (t *ClockTransport) SetSeconds(seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base = seconds
	t.startedAt = time.Now()
}

func (t *ClockTransport) SetRate(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rate > 0 {
		t.rate = rate
	}
}

// Rate returns the current playback rate factor.
func (t *ClockTransport) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate
}

// positionLocked computes the clock position; the rate scales wall time
// into sequence time.
func (t *ClockTransport) positionLocked() float64 {
	pos := t.base
	if t.running {
		pos += time.Since(t.startedAt).Seconds() * t.rate
	}
	if t.duration > 0 && pos > t.duration {
		pos = t.duration
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}
