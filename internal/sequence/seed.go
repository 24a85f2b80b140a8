package sequence

import (
	"fmt"
	"strconv"
)

const (
	// SeedNoteCount notes are derived per fingerprint, one per hex byte.
	SeedNoteCount = 4

	// SeedTicksPerQuarter matches the resolution the continuation engine
	// was trained at.
	SeedTicksPerQuarter = 220

	seedNoteDuration = 0.5
	seedVelocity     = 100
	seedPitchBase    = 60
	seedPitchRange   = 24
)

// DeriveSeed maps a content fingerprint into a short seed phrase. The
// mapping is pure: a given (fingerprint, tempo) pair always yields the
// same four pitches, which is what makes share links reproducible.
//
// Pitch i is 60 + (byte at hex offset i*2 mod 24), so every derived pitch
// lies in [60, 83]. Notes are contiguous half-unit spans starting at 0.
func DeriveSeed(fingerprint string, tempoQPM float64) (*NoteSequence, error) {
	if len(fingerprint) < SeedNoteCount*2 {
		return nil, fmt.Errorf("fingerprint too short for seed derivation: %d hex chars", len(fingerprint))
	}

	notes := make([]*Note, 0, SeedNoteCount)
	for i := 0; i < SeedNoteCount; i++ {
		b, err := strconv.ParseUint(fingerprint[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("fingerprint is not hex at offset %d: %w", i*2, err)
		}
		start := float64(i) * seedNoteDuration
		notes = append(notes, &Note{
			Pitch:     seedPitchBase + int(b%seedPitchRange),
			StartTime: start,
			EndTime:   start + seedNoteDuration,
			Velocity:  seedVelocity,
		})
	}

	return &NoteSequence{
		TicksPerQuarter: SeedTicksPerQuarter,
		TotalTime:       SeedNoteCount * seedNoteDuration,
		Notes:           notes,
		Tempos:          []Tempo{{Time: 0, QPM: tempoQPM}},
	}, nil
}
