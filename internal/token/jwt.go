package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	FunID           string   `json:"fun_id"`
	Username        string   `json:"username"`
	CustodialWallet string   `json:"custodial_wallet,omitempty"`
	Scope           []string `json:"scope"`

	jwt.RegisteredClaims
}

// ClientID is the audience the token was issued to.
func (c Claims) ClientID() string {
	if len(c.Audience) == 0 {
		return ""
	}
	return c.Audience[0]
}

type Signer struct {
	Key      []byte
	Issuer   string
	TokenTTL time.Duration
	Now      func() time.Time
}

func (s Signer) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s Signer) Sign(claims Claims) (token string, expiresAt time.Time, err error) {
	now := s.now()
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		expiresAt = now.Add(s.TokenTTL)
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	} else {
		expiresAt = claims.ExpiresAt.Time
	}
	claims.Issuer = s.Issuer

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	out, err := t.SignedString(s.Key)
	if err != nil {
		return "", time.Time{}, err
	}
	return out, expiresAt, nil
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Verify checks the signature, issuer and expiry. Expired but otherwise valid
// tokens return ErrTokenExpired.
func (s Signer) Verify(raw string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.Key, nil
	},
		jwt.WithIssuer(s.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	return *c, nil
}
