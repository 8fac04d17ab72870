package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

func SHA256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Fingerprint is a short, non-reversible tag for logging secrets such as tokens.
func Fingerprint(secret string) string {
	return SHA256Hex(secret)[:12]
}

func HMACSHA256Hex(message, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// HMACEqual compares an expected hex digest against a received one in
// constant time.
func HMACEqual(expectedHex, gotHex string) bool {
	return hmac.Equal([]byte(expectedHex), []byte(gotHex))
}
