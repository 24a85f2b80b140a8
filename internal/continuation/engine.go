// Package continuation talks to the external sequence-continuation
// engine: an opaque model that extends a short quantized seed into a full
// note sequence.
package continuation

import (
	"context"
	"errors"

	"github.com/ankits1802/finetune-api/internal/sequence"
)

// ErrContinuationFailed is returned when the engine cannot produce a
// continuation. It surfaces immediately, with no silent retry.
var ErrContinuationFailed = errors.New("sequence continuation failed")

const (
	// DefaultSteps is the fixed continuation length requested per
	// generation.
	DefaultSteps = 60

	// DefaultTemperature balances novelty against coherence.
	DefaultTemperature = 1.1
)

// Request carries a quantized seed and the sampling parameters.
type Request struct {
	Sequence    *sequence.NoteSequence `json:"sequence"`
	Steps       int                    `json:"steps"`
	Temperature float64                `json:"temperature"`
}

// Engine is the capability interface for the continuation model, so a
// test double can be substituted without touching pipeline logic.
type Engine interface {
	// Continue extends the quantized seed by req.Steps steps.
	Continue(ctx context.Context, req *Request) (*sequence.NoteSequence, error)
}
