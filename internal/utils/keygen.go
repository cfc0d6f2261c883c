package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// AccessTokenBytes is the entropy of an admin access token (80 hex chars).
const AccessTokenBytes = 40

// GenerateToken returns n random bytes from crypto/rand, hex encoded.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateAccessToken generates an opaque bearer token for an admin session.
func GenerateAccessToken() (string, error) {
	return GenerateToken(AccessTokenBytes)
}

// HashToken returns the SHA-256 hex digest stored in place of the raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
