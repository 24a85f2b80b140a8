// Package share encodes seed text into URL fragments and back. Decoding
// a fragment and re-running composition reproduces the same fingerprint,
// and by determinism the same seed.
package share

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// ErrEncoding is returned for malformed share fragments.
var ErrEncoding = errors.New("share encoding error")

// DefaultSeedText is used when no fragment is supplied or a fragment
// cannot be decoded; the session starts instead of failing.
const DefaultSeedText = "A futuristic city skyline at dusk, neon lights reflecting on wet streets after a gentle rain."

// Encode turns seed text into a URL fragment.
func Encode(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// Decode reverses Encode. Malformed input wraps ErrEncoding.
func Decode(fragment string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(fragment)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	if len(raw) == 0 || !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: fragment does not decode to text", ErrEncoding)
	}
	return string(raw), nil
}

// DecodeOrDefault decodes the fragment. An absent fragment falls back to
// DefaultSeedText; a fragment that fails to decode falls back to a
// timestamp seed so the broken link still opens a distinct session.
func DecodeOrDefault(fragment string) (text string, fellBack bool) {
	if fragment == "" {
		return DefaultSeedText, true
	}
	decoded, err := Decode(fragment)
	if err != nil {
		return TimestampSeedText(), true
	}
	return decoded, false
}

// TimestampSeedText is the seed of last resort when a supplied fragment
// cannot be decoded.
func TimestampSeedText() string {
	return "Timestamp: " + time.Now().UTC().Format(time.RFC3339)
}
