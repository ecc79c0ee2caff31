package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes is the entropy of a session token. 32 bytes (256 bits) keeps a
// comfortable margin above the 128-bit guessability floor.
const tokenBytes = 32

// generateToken generates a cryptographically secure random session token
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
