package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankits1802/finetune-api/internal/sequence"
)

type startCall struct {
	seq    *sequence.NoteSequence
	offset float64
}

// fakeTransport lets tests drive the clock by hand and inspect what the
// controller handed to the audio layer.
type fakeTransport struct {
	mu      sync.Mutex
	playing bool
	seconds float64
	rate    float64

	starts   []startCall
	resumes  int
	startErr error
}

func (f *fakeTransport) Start(seq *sequence.NoteSequence, offsetSeconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts = append(f.starts, startCall{seq: seq, offset: offsetSeconds})
	f.playing = true
	f.seconds = offsetSeconds
	return nil
}

func (f *fakeTransport) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
}

func (f *fakeTransport) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
}

func (f *fakeTransport) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	f.playing = true
	return nil
}

func (f *fakeTransport) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeTransport) Seconds() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seconds
}

func (f *fakeTransport) SetSeconds(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seconds = seconds
}

func (f *fakeTransport) SetRate(rate float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rate = rate
}

func (f *fakeTransport) advance(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seconds += seconds
}

func (f *fakeTransport) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
}

func (f *fakeTransport) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

func (f *fakeTransport) resumeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resumes
}

func (f *fakeTransport) lastStart() startCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts[len(f.starts)-1]
}

func tenSecondSequence() *sequence.NoteSequence {
	return &sequence.NoteSequence{
		TicksPerQuarter: 220,
		TotalTime:       10,
		Notes: []*sequence.Note{
			{Pitch: 71, StartTime: 0, EndTime: 0.5, Velocity: 100},
			{Pitch: 74, StartTime: 0.5, EndTime: 1.25, Velocity: 100},
		},
		Tempos: []sequence.Tempo{{Time: 0, QPM: 120}},
	}
}

func newTestController() (*Controller, *fakeTransport) {
	transport := &fakeTransport{}
	c := NewController(transport,
		WithPollInterval(2*time.Millisecond),
		WithSettleDelay(time.Millisecond),
	)
	return c, transport
}

func TestController_IdleWithoutSequence(t *testing.T) {
	c, _ := newTestController()

	assert.Equal(t, StateIdle, c.State())
	err := c.Play()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlayback)
}

func TestController_LoadResetsState(t *testing.T) {
	c, _ := newTestController()
	c.LoadSequence(tenSecondSequence(), 96)

	snap := c.Snapshot()
	assert.Equal(t, StateStopped, c.State())
	assert.False(t, snap.IsPlaying)
	assert.Zero(t, snap.ProgressPercent)
	assert.Equal(t, 96, snap.TempoBPM)
	assert.Equal(t, DefaultVolumePercent, snap.VolumePercent)
	assert.InDelta(t, 10.0, snap.TotalSeconds, 1e-9)
}

func TestController_PlayStartsCloneNotOriginal(t *testing.T) {
	c, transport := newTestController()
	original := tenSecondSequence()
	c.LoadSequence(original, 120)

	require.NoError(t, c.Play())
	defer c.Restart()

	assert.Equal(t, StatePlaying, c.State())
	require.Equal(t, 1, transport.startCount())
	started := transport.lastStart()
	assert.Zero(t, started.offset)
	assert.NotSame(t, original, started.seq)

	// Default volume 80 maps to velocity round(0.8*127) = 102.
	for _, n := range started.seq.Notes {
		assert.Equal(t, 102, n.Velocity)
	}
	// The canonical sequence keeps its generated velocities.
	for _, n := range original.Notes {
		assert.Equal(t, 100, n.Velocity)
	}
}

func TestController_VolumeMapsToVelocity(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	require.NoError(t, c.SetVolume(50))
	require.NoError(t, c.Play())
	defer c.Restart()

	// round(50/100 * 127) = 64.
	for _, n := range transport.lastStart().seq.Notes {
		assert.Equal(t, 64, n.Velocity)
	}
}

func TestController_PauseThenPlayResumes(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	require.NoError(t, c.Play())
	transport.advance(5)
	c.Pause()
	defer c.Restart()

	snap := c.Snapshot()
	assert.False(t, snap.IsPlaying)
	assert.InDelta(t, 50.0, snap.ProgressPercent, 0.1)

	// No edits since pausing, so the transport resumes in place.
	require.NoError(t, c.Play())
	assert.Equal(t, 1, transport.startCount())
	assert.Equal(t, 1, transport.resumeCount())
}

func TestController_EditAfterPauseForcesRestart(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	require.NoError(t, c.Play())
	transport.advance(2)
	c.Pause()
	require.NoError(t, c.SetVolume(50))

	require.NoError(t, c.Play())
	defer c.Restart()

	// The volume edit invalidates the paused clone.
	assert.Equal(t, 2, transport.startCount())
	assert.Zero(t, transport.resumeCount())
	started := transport.lastStart()
	assert.InDelta(t, 2.0, started.offset, 0.1)
	for _, n := range started.seq.Notes {
		assert.Equal(t, 64, n.Velocity)
	}
}

func TestController_PlayAtEndRestartsFromZero(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	require.NoError(t, c.Seek(100))
	assert.InDelta(t, 100.0, c.Snapshot().ProgressPercent, 1e-9)

	require.NoError(t, c.Play())
	defer c.Restart()
	assert.Zero(t, transport.lastStart().offset)
	assert.InDelta(t, 0.0, c.Snapshot().ProgressPercent, 1e-9)
}

func TestController_SeekWhileStopped(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	require.NoError(t, c.Seek(50))
	assert.InDelta(t, 50.0, c.Snapshot().ProgressPercent, 1e-9)
	assert.InDelta(t, 5.0, transport.Seconds(), 1e-9)
	assert.Zero(t, transport.startCount(), "seeking while stopped must not start sound")
	assert.Equal(t, StateStopped, c.State())
}

func TestController_SeekClamps(t *testing.T) {
	c, _ := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	require.NoError(t, c.Seek(150))
	assert.InDelta(t, 100.0, c.Snapshot().ProgressPercent, 1e-9)

	require.NoError(t, c.Seek(-20))
	assert.InDelta(t, 0.0, c.Snapshot().ProgressPercent, 1e-9)
}

func TestController_SeekWhilePlayingReenters(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	require.NoError(t, c.Play())
	require.NoError(t, c.Seek(50))
	defer c.Restart()

	assert.Equal(t, StatePlaying, c.State())
	assert.True(t, c.Snapshot().IsPlaying)
	assert.True(t, transport.IsPlaying())
	assert.InDelta(t, 5.0, transport.Seconds(), 1e-9)
	assert.InDelta(t, 50.0, c.Snapshot().ProgressPercent, 1e-9)
}

func TestController_SeekBy(t *testing.T) {
	c, _ := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	require.NoError(t, c.Seek(50))
	require.NoError(t, c.SeekBy(2.5))
	assert.InDelta(t, 75.0, c.Snapshot().ProgressPercent, 1e-9)

	require.NoError(t, c.SeekBy(-5))
	assert.InDelta(t, 25.0, c.Snapshot().ProgressPercent, 1e-9)

	// Skips clamp at the edges.
	require.NoError(t, c.SeekBy(-100))
	assert.InDelta(t, 0.0, c.Snapshot().ProgressPercent, 1e-9)
}

func TestController_Restart(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	require.NoError(t, c.Play())
	transport.advance(5)
	c.Restart()

	snap := c.Snapshot()
	assert.False(t, snap.IsPlaying)
	assert.Zero(t, snap.ProgressPercent)
	assert.False(t, transport.IsPlaying())
	assert.Zero(t, transport.Seconds())
}

func TestController_SetTempoValidated(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	assert.Error(t, c.SetTempo(TempoMin-1))
	assert.Error(t, c.SetTempo(TempoMax+1))

	require.NoError(t, c.SetTempo(150))
	require.NoError(t, c.Play())
	defer c.Restart()

	started := transport.lastStart()
	require.Len(t, started.seq.Tempos, 1)
	assert.InDelta(t, 150.0, started.seq.Tempos[0].QPM, 1e-9)
	assert.InDelta(t, 150.0/120.0, transport.rate, 1e-9)
}

func TestController_SetVolumeValidated(t *testing.T) {
	c, _ := newTestController()
	assert.Error(t, c.SetVolume(-1))
	assert.Error(t, c.SetVolume(101))
	assert.NoError(t, c.SetVolume(0))
	assert.NoError(t, c.SetVolume(100))
}

func TestController_SetInstrument(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	assert.Error(t, c.SetInstrument(3), "not in the catalog")

	require.NoError(t, c.SetInstrument(24)) // acoustic nylon guitar
	require.NoError(t, c.Play())
	defer c.Restart()

	for _, n := range transport.lastStart().seq.Notes {
		assert.Equal(t, 24, n.Program)
	}
	assert.Equal(t, 24, c.Snapshot().InstrumentProgram)
}

func TestController_PollerTracksProgress(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	require.NoError(t, c.Play())
	defer c.Restart()
	transport.advance(2.5)

	require.Eventually(t, func() bool {
		p := c.Snapshot().ProgressPercent
		return p > 24 && p < 26
	}, time.Second, time.Millisecond)
}

func TestController_PollerDetectsCompletion(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	require.NoError(t, c.Play())
	transport.advance(10)
	transport.finish()

	require.Eventually(t, func() bool {
		return c.State() == StateStopped
	}, time.Second, time.Millisecond)
	assert.InDelta(t, 100.0, c.Snapshot().ProgressPercent, 1e-9)
}

func TestController_ScrubSuspendsPoller(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	require.NoError(t, c.Play())
	defer c.Restart()

	c.BeginScrub()
	c.Scrub(30)
	transport.advance(9)

	// The poller keeps ticking but must not overwrite the drag preview.
	time.Sleep(20 * time.Millisecond)
	assert.InDelta(t, 30.0, c.Snapshot().ProgressPercent, 1e-9)

	require.NoError(t, c.EndScrub(30))
	assert.Equal(t, StatePlaying, c.State())
	assert.InDelta(t, 3.0, transport.Seconds(), 1e-9)
}

func TestController_LastSeekWins(t *testing.T) {
	transport := &fakeTransport{}
	c := NewController(transport,
		WithPollInterval(2*time.Millisecond),
		WithSettleDelay(50*time.Millisecond),
	)
	c.LoadSequence(tenSecondSequence(), 120)
	require.NoError(t, c.Play())
	defer c.Restart()

	done := make(chan error, 1)
	go func() { done <- c.Seek(20) }()

	// Land the second seek inside the first one's settling wait.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, c.Seek(80))
	require.NoError(t, <-done)

	assert.InDelta(t, 80.0, c.Snapshot().ProgressPercent, 1e-9)
	assert.InDelta(t, 8.0, transport.Seconds(), 1e-9)
	assert.Equal(t, StatePlaying, c.State())
}

func TestController_PauseDuringSeekSettleStaysPaused(t *testing.T) {
	transport := &fakeTransport{}
	c := NewController(transport,
		WithPollInterval(2*time.Millisecond),
		WithSettleDelay(50*time.Millisecond),
	)
	c.LoadSequence(tenSecondSequence(), 120)
	require.NoError(t, c.Play())

	done := make(chan error, 1)
	go func() { done <- c.Seek(50) }()

	// Pause lands inside the seek's settling wait; the seek must not
	// resume playback afterwards.
	time.Sleep(10 * time.Millisecond)
	c.Pause()
	require.NoError(t, <-done)

	assert.Equal(t, StateStopped, c.State())
	assert.False(t, c.Snapshot().IsPlaying)
	assert.False(t, transport.IsPlaying())
	assert.InDelta(t, 5.0, transport.Seconds(), 1e-9)
}

func TestController_StartFailureRollsBack(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)

	transport.mu.Lock()
	transport.startErr = ErrPlayback
	transport.mu.Unlock()

	err := c.Play()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlayback)
	assert.Equal(t, StateStopped, c.State())
	assert.False(t, c.Snapshot().IsPlaying)
}

func TestController_LoadInvalidatesPlayback(t *testing.T) {
	c, transport := newTestController()
	c.LoadSequence(tenSecondSequence(), 120)
	require.NoError(t, c.Play())
	transport.advance(5)

	c.LoadSequence(tenSecondSequence(), 120)

	snap := c.Snapshot()
	assert.False(t, snap.IsPlaying)
	assert.Zero(t, snap.ProgressPercent)
	assert.Equal(t, 120, snap.TempoBPM)
	assert.False(t, transport.IsPlaying())
}
