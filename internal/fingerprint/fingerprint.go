// Package fingerprint computes the stable content digest that joins a
// composition to its seed, its share link and its history entry.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// HexLength is the length of a fingerprint in hex characters.
const HexLength = sha256.Size * 2

// Hash returns the SHA-256 digest of the raw text bytes as lowercase hex.
// Identical input yields identical output across process restarts; the
// digest is never requested from a remote service.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
