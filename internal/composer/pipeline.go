// Package composer orchestrates idea generation, seed derivation,
// quantization and continuation into a finished note sequence.
package composer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ankits1802/finetune-api/internal/continuation"
	"github.com/ankits1802/finetune-api/internal/history"
	"github.com/ankits1802/finetune-api/internal/idea"
	"github.com/ankits1802/finetune-api/internal/logger"
	"github.com/ankits1802/finetune-api/internal/metrics"
	"github.com/ankits1802/finetune-api/internal/sequence"
)

var sentryMetrics = metrics.NewSentryMetrics()

// ErrSuperseded is returned when a newer Compose call was issued before
// this one finished; the stale result is discarded rather than raced into
// the active session.
var ErrSuperseded = errors.New("composition superseded by a newer request")

// Pipeline owns the canonical NoteSequence for the current session.
// Either a complete (idea, sequence) pair is produced, or nothing: no
// partial result is ever exposed.
type Pipeline struct {
	ideas    *idea.Client
	engine   continuation.Engine
	recorder history.Recorder

	stepsPerQuarter int
	steps           int
	temperature     float64

	latest atomic.Uint64

	mu          sync.Mutex
	currentIdea *idea.MusicalIdea
	currentSeq  *sequence.NoteSequence
}

// New creates a pipeline with the default musical constants. The recorder
// may be nil when history is disabled.
func New(ideas *idea.Client, engine continuation.Engine, recorder history.Recorder) *Pipeline {
	return &Pipeline{
		ideas:           ideas,
		engine:          engine,
		recorder:        recorder,
		stepsPerQuarter: sequence.DefaultStepsPerQuarter,
		steps:           continuation.DefaultSteps,
		temperature:     continuation.DefaultTemperature,
	}
}

// Compose runs the full text-to-sequence pipeline. A Compose call issued
// while another is in flight supersedes it: the older call finishes with
// ErrSuperseded and publishes nothing.
func (p *Pipeline) Compose(ctx context.Context, text string) (*idea.MusicalIdea, *sequence.NoteSequence, error) {
	ticket := p.latest.Add(1)
	startTime := time.Now()

	musicalIdea, err := p.ideas.RequestIdea(ctx, text)
	if err != nil {
		logger.LogComposition("", time.Since(startTime), false, nil)
		sentryMetrics.RecordCompositionDuration(ctx, time.Since(startTime), false)
		return nil, nil, err
	}
	if p.stale(ticket) {
		return nil, nil, ErrSuperseded
	}

	seed, err := sequence.DeriveSeed(musicalIdea.Fingerprint, musicalIdea.TempoBPM)
	if err != nil {
		return nil, nil, fmt.Errorf("derive seed: %w", err)
	}

	quantized, err := sequence.Quantize(seed, p.stepsPerQuarter)
	if err != nil {
		return nil, nil, fmt.Errorf("quantize seed: %w", err)
	}

	seq, err := p.engine.Continue(ctx, &continuation.Request{
		Sequence:    quantized,
		Steps:       p.steps,
		Temperature: p.temperature,
	})
	if err != nil {
		logger.LogComposition(musicalIdea.Fingerprint, time.Since(startTime), false, nil)
		sentryMetrics.RecordCompositionDuration(ctx, time.Since(startTime), false)
		return nil, nil, err
	}
	if p.stale(ticket) {
		return nil, nil, ErrSuperseded
	}

	p.mu.Lock()
	// Re-check under the lock so two racing calls cannot both publish.
	if p.stale(ticket) {
		p.mu.Unlock()
		return nil, nil, ErrSuperseded
	}
	p.currentIdea = musicalIdea
	p.currentSeq = seq
	p.mu.Unlock()

	if p.recorder != nil {
		entry := history.Entry{
			Text:        text,
			Fingerprint: musicalIdea.Fingerprint,
			Timestamp:   time.Now(),
		}
		if err := p.recorder.Record(ctx, entry); err != nil {
			logger.Warn("Failed to record history entry", logger.Fields{
				"fingerprint": musicalIdea.Fingerprint,
				"error":       err.Error(),
			})
		}
	}

	logger.LogComposition(musicalIdea.Fingerprint, time.Since(startTime), true, logger.Fields{
		"notes": len(seq.Notes),
		"style": musicalIdea.Style,
	})
	sentryMetrics.RecordCompositionDuration(ctx, time.Since(startTime), true)
	return musicalIdea, seq, nil
}

// Current returns the idea and canonical sequence of the last successful
// composition. Callers must treat the sequence as read-only and clone it
// before mutating (see sequence.NoteSequence.Clone).
func (p *Pipeline) Current() (*idea.MusicalIdea, *sequence.NoteSequence) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentIdea, p.currentSeq
}

func (p *Pipeline) stale(ticket uint64) bool {
	return p.latest.Load() != ticket
}
