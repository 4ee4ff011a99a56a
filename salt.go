package crowdvote

import (
	"crypto/rand"
	"encoding/hex"
)

// NewSalt returns 32 bytes of cryptographic randomness, hex encoded.
// A guessable salt would let anyone brute-force the committed vote
// before the reveal phase, so this must never fall back to a weaker
// source.
func NewSalt() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
