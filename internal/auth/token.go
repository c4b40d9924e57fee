package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenBytes yields 256 bits of entropy per token.
const tokenBytes = 32

// NewToken returns an opaque bearer token: 64 hex characters drawn entirely
// from the OS CSPRNG. The token carries no structure; the session store is
// the only authority on what it maps to. Uniqueness is statistical, with the
// store's primary-key constraint as the final backstop (the caller retries
// generation on an insert collision).
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// RedactToken shortens a token for log output. Full tokens never appear in
// logs or audit rows.
func RedactToken(tok string) string {
	if len(tok) <= 8 {
		return "********"
	}
	return tok[:8] + "…"
}
