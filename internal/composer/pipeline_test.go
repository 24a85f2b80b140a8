package composer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankits1802/finetune-api/internal/continuation"
	"github.com/ankits1802/finetune-api/internal/fingerprint"
	"github.com/ankits1802/finetune-api/internal/history"
	"github.com/ankits1802/finetune-api/internal/idea"
	"github.com/ankits1802/finetune-api/internal/sequence"
)

type stubProvider struct {
	out *idea.ProviderIdea
	err error
}

func (s *stubProvider) GenerateIdea(_ context.Context, _ *idea.Request) (*idea.ProviderIdea, error) {
	return s.out, s.err
}

func (s *stubProvider) Name() string { return "stub" }

// mockEngine records requests and returns a canned continuation.
type mockEngine struct {
	ContinueFunc func(ctx context.Context, req *continuation.Request) (*sequence.NoteSequence, error)

	mu       sync.Mutex
	requests []*continuation.Request
}

func (m *mockEngine) Continue(ctx context.Context, req *continuation.Request) (*sequence.NoteSequence, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.ContinueFunc(ctx, req)
}

func (m *mockEngine) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func continuedSequence() *sequence.NoteSequence {
	return &sequence.NoteSequence{
		TicksPerQuarter: sequence.SeedTicksPerQuarter,
		TotalTime:       9.5,
		Notes: []*sequence.Note{
			{Pitch: 71, StartTime: 0, EndTime: 0.5, Velocity: 100},
			{Pitch: 74, StartTime: 0.5, EndTime: 1.25, Velocity: 100},
		},
		Tempos: []sequence.Tempo{{Time: 0, QPM: 120}},
	}
}

func newTestPipeline(engine continuation.Engine, recorder history.Recorder) *Pipeline {
	provider := &stubProvider{out: &idea.ProviderIdea{Tempo: 120, Key: "C major", Style: "ambient"}}
	return New(idea.NewClient(provider), engine, recorder)
}

func TestCompose_Success(t *testing.T) {
	engine := &mockEngine{
		ContinueFunc: func(_ context.Context, _ *continuation.Request) (*sequence.NoteSequence, error) {
			return continuedSequence(), nil
		},
	}
	recorder := history.NewMemoryRecorder()
	p := newTestPipeline(engine, recorder)

	gotIdea, gotSeq, err := p.Compose(context.Background(), "ocean waves at midnight")
	require.NoError(t, err)

	assert.Equal(t, fingerprint.Hash("ocean waves at midnight"), gotIdea.Fingerprint)
	assert.Len(t, gotSeq.Notes, 2)

	// The engine saw a quantized four-note seed with the default knobs.
	require.Len(t, engine.requests, 1)
	req := engine.requests[0]
	assert.Equal(t, continuation.DefaultSteps, req.Steps)
	assert.InDelta(t, continuation.DefaultTemperature, req.Temperature, 1e-9)
	require.NotNil(t, req.Sequence.QuantizationInfo)
	assert.Len(t, req.Sequence.Notes, sequence.SeedNoteCount)

	// Published as current and recorded in history.
	curIdea, curSeq := p.Current()
	assert.Same(t, gotIdea, curIdea)
	assert.Same(t, gotSeq, curSeq)

	entries, err := recorder.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ocean waves at midnight", entries[0].Text)
	assert.Equal(t, gotIdea.Fingerprint, entries[0].Fingerprint)
}

func TestCompose_EngineFailureLeavesNoPartialState(t *testing.T) {
	engine := &mockEngine{
		ContinueFunc: func(_ context.Context, _ *continuation.Request) (*sequence.NoteSequence, error) {
			return nil, fmt.Errorf("%w: engine down", continuation.ErrContinuationFailed)
		},
	}
	recorder := history.NewMemoryRecorder()
	p := newTestPipeline(engine, recorder)

	_, _, err := p.Compose(context.Background(), "thunderstorm")
	require.Error(t, err)
	assert.ErrorIs(t, err, continuation.ErrContinuationFailed)

	curIdea, curSeq := p.Current()
	assert.Nil(t, curIdea)
	assert.Nil(t, curSeq)

	entries, err := recorder.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries, "failed compositions never reach history")
}

func TestCompose_SupersededByNewerRequest(t *testing.T) {
	// The first engine call blocks until released; the second returns
	// immediately, so the older composition finishes last.
	release := make(chan struct{})
	var calls atomic.Int64
	engine := &mockEngine{
		ContinueFunc: func(_ context.Context, _ *continuation.Request) (*sequence.NoteSequence, error) {
			if calls.Add(1) == 1 {
				<-release
			}
			return continuedSequence(), nil
		},
	}
	p := newTestPipeline(engine, nil)

	done := make(chan error, 1)
	go func() {
		_, _, err := p.Compose(context.Background(), "first idea")
		done <- err
	}()

	// Wait for the first call to reach the engine, then supersede it.
	require.Eventually(t, func() bool {
		return engine.calls() > 0
	}, 2*time.Second, time.Millisecond)

	newIdea, _, err := p.Compose(context.Background(), "second idea")
	require.NoError(t, err)

	close(release)
	require.ErrorIs(t, <-done, ErrSuperseded)

	curIdea, _ := p.Current()
	require.NotNil(t, curIdea)
	assert.Equal(t, newIdea.Fingerprint, curIdea.Fingerprint, "the newer composition stays current")
}

func TestCompose_IdeaFailureSkipsEngine(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("provider down")}
	// Instant backoff keeps the three failing attempts fast.
	client := idea.NewClient(provider, idea.WithSleep(
		func(context.Context, time.Duration) error { return nil },
	))
	engine := &mockEngine{
		ContinueFunc: func(_ context.Context, _ *continuation.Request) (*sequence.NoteSequence, error) {
			return continuedSequence(), nil
		},
	}
	p := New(client, engine, nil)

	_, _, err := p.Compose(context.Background(), "silent hills")
	require.Error(t, err)
	assert.ErrorIs(t, err, idea.ErrGenerationFailed)
	assert.Empty(t, engine.requests)
}
