package sequence

import (
	"fmt"
	"math"
)

// DefaultStepsPerQuarter is the grid resolution the continuation engine
// expects. Kept configurable rather than baked into Quantize.
const DefaultStepsPerQuarter = 4

const quantizeFallbackQPM = 120

// Quantize snaps note boundaries to a fixed time grid and returns a new
// quantized sequence; the input is never modified. Boundaries round to the
// nearest grid line, with exact midpoints snapping to the later step. The
// rule is lossy but deterministic, so the same seed always produces the
// same quantized input for the engine.
func Quantize(seq *NoteSequence, stepsPerQuarter int) (*NoteSequence, error) {
	if seq == nil {
		return nil, fmt.Errorf("nil sequence")
	}
	if stepsPerQuarter <= 0 {
		return nil, fmt.Errorf("invalid steps per quarter: %d", stepsPerQuarter)
	}

	qpm := seq.QPM(quantizeFallbackQPM)
	stepsPerSecond := float64(stepsPerQuarter) * qpm / 60.0

	out := seq.Clone()
	out.QuantizationInfo = &QuantizationInfo{StepsPerQuarter: stepsPerQuarter}

	total := 0
	for _, n := range out.Notes {
		n.QuantizedStartStep = quantizeStep(n.StartTime, stepsPerSecond)
		n.QuantizedEndStep = quantizeStep(n.EndTime, stepsPerSecond)
		// A note must occupy at least one step.
		if n.QuantizedEndStep == n.QuantizedStartStep {
			n.QuantizedEndStep++
		}
		if n.QuantizedEndStep > total {
			total = n.QuantizedEndStep
		}
	}
	out.TotalQuantizedSteps = total

	return out, nil
}

// quantizeStep rounds to the nearest step, ties toward the later step.
func quantizeStep(seconds, stepsPerSecond float64) int {
	return int(math.Floor(seconds*stepsPerSecond + 0.5))
}
