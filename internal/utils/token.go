package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// TokenBytes is the entropy of a visitor token (256 bits).
const TokenBytes = 32

// GenerateToken returns TokenBytes random bytes encoded as unpadded
// base64url, which is safe to embed in a query string.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
