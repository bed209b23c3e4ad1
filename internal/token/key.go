package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"strings"
)

var ErrMissingSecret = errors.New("token: shared secret is not configured")

// DeriveSigningKey returns HMAC-SHA256(domain) keyed by the shared secret.
// The digest itself is the HS256 signing and verification key.
func DeriveSigningKey(sharedSecret, domain string) ([]byte, error) {
	if strings.TrimSpace(sharedSecret) == "" {
		return nil, ErrMissingSecret
	}
	mac := hmac.New(sha256.New, []byte(sharedSecret))
	mac.Write([]byte(domain))
	return mac.Sum(nil), nil
}
