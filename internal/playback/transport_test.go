package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockTransport_StartAndAdvance(t *testing.T) {
	clock := NewClockTransport()
	require.NoError(t, clock.Start(tenSecondSequence(), 2))

	assert.True(t, clock.IsPlaying())
	time.Sleep(50 * time.Millisecond)
	pos := clock.Seconds()
	assert.Greater(t, pos, 2.0)
	assert.Less(t, pos, 3.0)
}

func TestClockTransport_PausePreservesPosition(t *testing.T) {
	clock := NewClockTransport()
	require.NoError(t, clock.Start(tenSecondSequence(), 0))

	time.Sleep(30 * time.Millisecond)
	clock.Pause()
	paused := clock.Seconds()
	assert.False(t, clock.IsPlaying())

	time.Sleep(30 * time.Millisecond)
	assert.InDelta(t, paused, clock.Seconds(), 1e-9, "clock must not move while paused")

	require.NoError(t, clock.Resume())
	assert.True(t, clock.IsPlaying())
	time.Sleep(30 * time.Millisecond)
	assert.Greater(t, clock.Seconds(), paused)
}

func TestClockTransport_ResumeRequiresPause(t *testing.T) {
	clock := NewClockTransport()
	assert.Error(t, clock.Resume())

	require.NoError(t, clock.Start(tenSecondSequence(), 0))
	clock.Stop()
	assert.Error(t, clock.Resume(), "stopped is not paused")
}

func TestClockTransport_SetSeconds(t *testing.T) {
	clock := NewClockTransport()
	require.NoError(t, clock.Start(tenSecondSequence(), 0))
	clock.Pause()

	clock.SetSeconds(7.5)
	assert.InDelta(t, 7.5, clock.Seconds(), 1e-9)
}

func TestClockTransport_ClampsAtDuration(t *testing.T) {
	clock := NewClockTransport()
	require.NoError(t, clock.Start(tenSecondSequence(), 9.99))

	time.Sleep(30 * time.Millisecond)
	assert.InDelta(t, 10.0, clock.Seconds(), 1e-9)
	assert.False(t, clock.IsPlaying(), "running past the end reads as finished")
}

func TestClockTransport_RateScalesTime(t *testing.T) {
	clock := NewClockTransport()
	clock.SetRate(2)
	require.NoError(t, clock.Start(tenSecondSequence(), 0))

	time.Sleep(50 * time.Millisecond)
	pos := clock.Seconds()
	// Double rate covers roughly twice the wall time.
	assert.Greater(t, pos, 0.08)
	assert.Less(t, pos, 0.5)
	assert.InDelta(t, 2.0, clock.Rate(), 1e-9)
}
