package token

import (
	"crypto/rand"
	"encoding/hex"
)

// RefreshTokenLength is the length of an opaque refresh token in characters.
const RefreshTokenLength = 96

func NewRefreshToken() (string, error) {
	return randomHex(RefreshTokenLength / 2)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
