package common

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// GenerateRandByteArray returns size bytes from crypto/rand.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b)
	return b
}

// MakeRandHexString returns size random bytes hex-encoded (2*size chars).
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray zeroes b in place.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// StripBearer returns the token part of an Authorization header value.
func StripBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > len(BearerPrefix) && strings.EqualFold(v[:len(BearerPrefix)], BearerPrefix) {
		return strings.TrimSpace(v[len(BearerPrefix):])
	}
	return v
}
