package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sha256("A futuristic city skyline at dusk, neon lights reflecting on
// wet streets after a gentle rain.")
const cityFingerprint = "6b3ae450b8af52aa6330b23a885b8a04678066dfe4cfd93b198b1260477c7899"

func TestDeriveSeed_CitySkyline(t *testing.T) {
	seq, err := DeriveSeed(cityFingerprint, 120)
	require.NoError(t, err)

	require.Len(t, seq.Notes, SeedNoteCount)
	// First four hex bytes: 6b, 3a, e4, 50 -> 60 + b%24.
	wantPitches := []int{71, 70, 72, 68}
	for i, n := range seq.Notes {
		assert.Equal(t, wantPitches[i], n.Pitch, "note %d pitch", i)
		assert.InDelta(t, float64(i)*0.5, n.StartTime, 1e-9, "note %d start", i)
		assert.InDelta(t, float64(i)*0.5+0.5, n.EndTime, 1e-9, "note %d end", i)
		assert.Equal(t, 100, n.Velocity, "note %d velocity", i)
	}

	assert.Equal(t, SeedTicksPerQuarter, seq.TicksPerQuarter)
	assert.InDelta(t, 2.0, seq.TotalTime, 1e-9)
	require.Len(t, seq.Tempos, 1)
	assert.InDelta(t, 120.0, seq.Tempos[0].QPM, 1e-9)
}

func TestDeriveSeed_PitchRange(t *testing.T) {
	tests := []struct {
		name        string
		fingerprint string
	}{
		{"all zero bytes", "0000000000000000"},
		{"all ff bytes", "ffffffffffffffff"},
		{"hello world digest", "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := DeriveSeed(tt.fingerprint, 90)
			require.NoError(t, err)
			for i, n := range seq.Notes {
				assert.GreaterOrEqual(t, n.Pitch, 60, "note %d", i)
				assert.LessOrEqual(t, n.Pitch, 83, "note %d", i)
			}
		})
	}
}

func TestDeriveSeed_Deterministic(t *testing.T) {
	a, err := DeriveSeed(cityFingerprint, 120)
	require.NoError(t, err)
	b, err := DeriveSeed(cityFingerprint, 120)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeriveSeed_Invalid(t *testing.T) {
	_, err := DeriveSeed("6b3a", 120)
	assert.Error(t, err, "too short")

	_, err = DeriveSeed("zzzzzzzzzzzzzzzz", 120)
	assert.Error(t, err, "not hex")
}
