package sequence

import "math"

// Note is a single pitched event inside a NoteSequence.
type Note struct {
	Pitch     int     `json:"pitch"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Velocity  int     `json:"velocity,omitempty"`
	Program   int     `json:"program,omitempty"`

	// Set by Quantize; zero until the sequence has been quantized
	QuantizedStartStep int `json:"quantizedStartStep,omitempty"`
	QuantizedEndStep   int `json:"quantizedEndStep,omitempty"`
}

// Tempo is a tempo marker at an absolute time offset.
type Tempo struct {
	Time float64 `json:"time"`
	QPM  float64 `json:"qpm"`
}

// QuantizationInfo records the grid a sequence was quantized to.
type QuantizationInfo struct {
	StepsPerQuarter int `json:"stepsPerQuarter"`
}

// NoteSequence is the canonical note-level representation of a composition.
// A sequence produced by the continuation engine is treated as immutable;
// playback operates on clones (see Clone).
type NoteSequence struct {
	TicksPerQuarter     int               `json:"ticksPerQuarter"`
	TotalTime           float64           `json:"totalTime"`
	Notes               []*Note           `json:"notes"`
	Tempos              []Tempo           `json:"tempos"`
	QuantizationInfo    *QuantizationInfo `json:"quantizationInfo,omitempty"`
	TotalQuantizedSteps int               `json:"totalQuantizedSteps,omitempty"`
}

// Clone returns a deep copy of the sequence. Mutating the copy (as every
// play transition does) never touches the original.
func (s *NoteSequence) Clone() *NoteSequence {
	if s == nil {
		return nil
	}
	out := &NoteSequence{
		TicksPerQuarter:     s.TicksPerQuarter,
		TotalTime:           s.TotalTime,
		Notes:               make([]*Note, len(s.Notes)),
		Tempos:              append([]Tempo(nil), s.Tempos...),
		TotalQuantizedSteps: s.TotalQuantizedSteps,
	}
	for i, n := range s.Notes {
		cp := *n
		out.Notes[i] = &cp
	}
	if s.QuantizationInfo != nil {
		qi := *s.QuantizationInfo
		out.QuantizationInfo = &qi
	}
	return out
}

// QPM returns the sequence's initial tempo, or the given fallback when no
// tempo marker is present.
func (s *NoteSequence) QPM(fallback float64) float64 {
	if s == nil || len(s.Tempos) == 0 || s.Tempos[0].QPM <= 0 {
		return fallback
	}
	return s.Tempos[0].QPM
}

// Duration returns the playable length in seconds: TotalTime, extended to
// cover the last note if the two disagree.
func (s *NoteSequence) Duration() float64 {
	if s == nil {
		return 0
	}
	d := s.TotalTime
	for _, n := range s.Notes {
		d = math.Max(d, n.EndTime)
	}
	return d
}
