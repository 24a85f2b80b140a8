package playback

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ankits1802/finetune-api/internal/sequence"
)

// State of the playback machine.
type State int

const (
	// StateIdle means no sequence is loaded.
	StateIdle State = iota
	// StateStopped means a sequence is loaded with a defined position,
	// but no sound is produced.
	StateStopped
	// StatePlaying means the transport is advancing and producing sound.
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	default:
		return "idle"
	}
}

// PlaybackState is the UI-facing snapshot. It is reset on every new
// generation and never persisted.
type PlaybackState struct {
	State             string  `json:"state"`
	IsPlaying         bool    `json:"isPlaying"`
	ProgressPercent   float64 `json:"progressPercent"`
	TempoBPM          int     `json:"tempoBpm"`
	VolumePercent     int     `json:"volumePercent"`
	InstrumentProgram int     `json:"instrumentProgram"`
	TotalSeconds      float64 `json:"totalSeconds"`
}

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultSettleDelay  = 50 * time.Millisecond

	// DefaultVolumePercent is the volume of a fresh session; volume
	// survives reloads, unlike tempo and progress.
	DefaultVolumePercent = 80

	defaultTempoBPM = 120
	fullVelocity    = 127

	// samePositionEpsilon bounds the drift tolerated when deciding
	// whether a paused transport is still at the requested offset.
	samePositionEpsilon = 1e-3
)

// TempoMin and TempoMax bound live tempo edits.
const (
	TempoMin = 60
	TempoMax = 180
)

// Controller serializes every mutating playback operation against a
// single PlaybackState and the transport's transient position. It is the
// exclusive owner of both.
type Controller struct {
	transport    Transport
	pollInterval time.Duration
	settleDelay  time.Duration

	mu              sync.Mutex
	seq             *sequence.NoteSequence
	loadTempo       int
	state           State
	progress        float64
	tempo           int
	volume          int
	program         int
	scrubbing       bool
	transportPaused bool
	pausedAt        float64
	dirty           bool
	pendingResume   bool
	seekGen         uint64
	pollStop        chan struct{}
}

// Option adjusts controller timing, mainly for tests.
type Option func(*Controller)

// WithPollInterval overrides the progress sampling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.pollInterval = d }
}

// WithSettleDelay overrides the quiesce wait between stopping and
// restarting the transport on a seek.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) { c.settleDelay = d }
}

// NewController creates an idle controller around the given transport.
func NewController(transport Transport, opts ...Option) *Controller {
	c := &Controller{
		transport:    transport,
		pollInterval: defaultPollInterval,
		settleDelay:  defaultSettleDelay,
		state:        StateIdle,
		tempo:        defaultTempoBPM,
		volume:       DefaultVolumePercent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadSequence installs a new canonical sequence, invalidating any
// in-flight playback or seek. Tempo resets to the sequence's generation
// tempo; the previous volume is kept.
func (c *Controller) LoadSequence(seq *sequence.NoteSequence, tempoBPM int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seekGen++
	c.stopPollerLocked()
	c.transport.Stop()
	c.transport.SetSeconds(0)

	c.seq = seq
	c.progress = 0
	c.transportPaused = false
	c.pendingResume = false
	c.dirty = true
	if tempoBPM > 0 {
		c.loadTempo = tempoBPM
		c.tempo = tempoBPM
	} else {
		c.loadTempo = defaultTempoBPM
		c.tempo = defaultTempoBPM
	}
	if seq == nil {
		c.state = StateIdle
	} else {
		c.state = StateStopped
	}
}

// Play transitions Stopped -> Playing. Every play builds a fresh clone of
// the canonical sequence with the current instrument, volume and tempo;
// the stored sequence is never touched. A transport that is merely paused
// at the same position, with no parameter edits since, is resumed instead
// so its clock keeps running without an audible glitch.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playLocked()
}

func (c *Controller) playLocked() error {
	if c.seq == nil {
		return fmt.Errorf("%w: no sequence loaded", ErrPlayback)
	}
	if c.state == StatePlaying {
		return nil
	}

	progress := c.progress
	if progress >= 100 {
		progress = 0
	}
	offset := c.seq.Duration() * progress / 100

	if c.transportPaused && !c.dirty && math.Abs(offset-c.pausedAt) < samePositionEpsilon {
		if err := c.transport.Resume(); err != nil {
			c.state = StateStopped
			return fmt.Errorf("%w: %w", ErrPlayback, err)
		}
	} else {
		clone := c.seq.Clone()
		velocity := int(math.Round(float64(c.volume) / 100 * fullVelocity))
		for _, n := range clone.Notes {
			n.Program = c.program
			n.Velocity = velocity
		}
		clone.Tempos = []sequence.Tempo{{Time: 0, QPM: float64(c.tempo)}}

		c.transport.SetRate(float64(c.tempo) / float64(c.loadTempo))
		if err := c.transport.Start(clone, offset); err != nil {
			c.state = StateStopped
			return fmt.Errorf("%w: %w", ErrPlayback, err)
		}
	}

	c.transportPaused = false
	c.pendingResume = false
	c.dirty = false
	c.progress = progress
	c.state = StatePlaying
	c.startPollerLocked()
	return nil
}

// Pause transitions Playing -> Stopped, preserving the transport clock
// position so Play can resume in place.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingResume = false
	if c.state != StatePlaying {
		return
	}

	c.stopPollerLocked()
	c.transport.Pause()
	c.pausedAt = c.transport.Seconds()
	c.transportPaused = true
	c.state = StateStopped
	if d := c.seq.Duration(); d > 0 {
		c.progress = clampPercent(c.pausedAt / d * 100)
	}
}

// Restart forces transport and position back to 0, stopping sound.
func (c *Controller) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq == nil {
		return
	}

	c.seekGen++
	c.stopPollerLocked()
	c.transport.Stop()
	c.transport.SetSeconds(0)
	c.progress = 0
	c.transportPaused = false
	c.pendingResume = false
	c.state = StateStopped
}

// Seek moves the position to the given percentage, clamped to [0,100].
// When playing, sound stops, the transport quiesces for the settling
// delay, and playback re-enters from the new position. A seek issued
// during another seek's settling wait supersedes it: last seek wins.
func (c *Controller) Seek(percent float64) error {
	c.mu.Lock()
	if c.seq == nil {
		c.mu.Unlock()
		return nil
	}

	p := clampPercent(percent)
	c.seekGen++
	gen := c.seekGen
	seconds := c.seq.Duration() * p / 100
	// A seek landing inside another seek's settling window inherits its
	// resume intent.
	wasPlaying := c.state == StatePlaying || c.pendingResume

	if !wasPlaying {
		c.transport.SetSeconds(seconds)
		if c.transportPaused {
			c.pausedAt = seconds
		}
		c.progress = p
		c.mu.Unlock()
		return nil
	}

	c.stopPollerLocked()
	c.transport.Pause()
	c.transport.SetSeconds(seconds)
	c.pausedAt = seconds
	c.transportPaused = true
	c.pendingResume = true
	c.state = StateStopped
	c.progress = p
	settle := c.settleDelay
	c.mu.Unlock()

	// Let the transport fully release before restarting; a double-start
	// races the transport's own stop.
	time.Sleep(settle)

	c.mu.Lock()
	defer c.mu.Unlock()
	// A newer seek supersedes this one; a Pause during the settling wait
	// withdraws the resume intent entirely.
	if c.seekGen != gen || !c.pendingResume {
		return nil
	}
	c.pendingResume = false
	return c.playLocked()
}

// SeekBy skips by a signed number of seconds relative to the current
// position. No-op when nothing is loaded or the duration is zero.
func (c *Controller) SeekBy(deltaSeconds float64) error {
	c.mu.Lock()
	if c.seq == nil {
		c.mu.Unlock()
		return nil
	}
	d := c.seq.Duration()
	if d <= 0 {
		c.mu.Unlock()
		return nil
	}
	current := d * c.progress / 100
	target := (current + deltaSeconds) / d * 100
	c.mu.Unlock()

	return c.Seek(target)
}

// SetTempo updates the tempo used by the next play transition. Audio
// already started is not altered mid-note.
func (c *Controller) SetTempo(bpm int) error {
	if bpm < TempoMin || bpm > TempoMax {
		return fmt.Errorf("tempo %d out of range [%d,%d]", bpm, TempoMin, TempoMax)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tempo = bpm
	c.dirty = true
	return nil
}

// SetVolume updates the volume used by the next play transition.
func (c *Controller) SetVolume(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("volume %d out of range [0,100]", percent)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = percent
	c.dirty = true
	return nil
}

// SetInstrument selects the GM program substituted on the next play.
func (c *Controller) SetInstrument(program int) error {
	if _, ok := InstrumentByProgram(program); !ok {
		return fmt.Errorf("unknown instrument program %d", program)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.program = program
	c.dirty = true
	return nil
}

// BeginScrub suspends the poller's progress writes while the user drags
// the scrub control, so the poller does not fight the drag.
func (c *Controller) BeginScrub() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scrubbing = true
}

// Scrub previews the dragged position without committing it.
func (c *Controller) Scrub(percent float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scrubbing {
		c.progress = clampPercent(percent)
	}
}

// EndScrub commits the drag as a seek and re-enables the poller.
func (c *Controller) EndScrub(percent float64) error {
	c.mu.Lock()
	c.scrubbing = false
	c.mu.Unlock()
	return c.Seek(percent)
}

// Snapshot returns a copy of the current playback state.
func (c *Controller) Snapshot() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PlaybackState{
		State:             c.state.String(),
		IsPlaying:         c.state == StatePlaying,
		ProgressPercent:   c.progress,
		TempoBPM:          c.tempo,
		VolumePercent:     c.volume,
		InstrumentProgram: c.program,
		TotalSeconds:      c.seq.Duration(),
	}
}

// State returns the machine state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) startPollerLocked() {
	stop := make(chan struct{})
	c.pollStop = stop
	go c.pollLoop(stop)
}

func (c *Controller) stopPollerLocked() {
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
}

// pollLoop samples the transport clock and publishes it as progress.
// It is the only writer of progress during ordinary playback.
func (c *Controller) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.pollStop != stop || c.state != StatePlaying {
				c.mu.Unlock()
				return
			}
			if c.scrubbing {
				c.mu.Unlock()
				continue
			}
			if d := c.seq.Duration(); d > 0 {
				c.progress = clampPercent(c.transport.Seconds() / d * 100)
			}
			if !c.transport.IsPlaying() {
				// The transport ran off the end of the sequence.
				c.progress = 100
				c.state = StateStopped
				c.transportPaused = false
				c.pollStop = nil
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()
		}
	}
}

func clampPercent(p float64) float64 {
	return math.Max(0, math.Min(100, p))
}
