package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/token"
)

const TokenTypeBearer = "Bearer"

type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	RefreshToken string       `json:"refresh_token"`
	Scope        string       `json:"scope"`
	User         *UserSummary `json:"user,omitempty"`
}

type UserSummary struct {
	ID              string `json:"id"`
	FunID           string `json:"fun_id"`
	Username        string `json:"username"`
	DisplayName     string `json:"display_name,omitempty"`
	AvatarURL       string `json:"avatar_url,omitempty"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	WalletAddress   string `json:"wallet_address,omitempty"`
	CustodialWallet string `json:"custodial_wallet,omitempty"`
	IsVerified      bool   `json:"is_verified"`
}

func summarize(p *models.Profile) *UserSummary {
	if p == nil {
		return nil
	}
	out := &UserSummary{
		ID:              p.ID,
		FunID:           p.FunID,
		Username:        p.Username,
		DisplayName:     p.DisplayName,
		AvatarURL:       p.AvatarURL,
		WalletAddress:   p.WalletAddress,
		CustodialWallet: p.CustodialWallet,
		IsVerified:      p.IsVerified,
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	if p.Phone != nil {
		out.Phone = *p.Phone
	}
	return out
}

// CredentialMinter signs access tokens and mints credential pairs. It is the
// single token-generation path shared by exchange, refresh and registration.
type CredentialMinter struct {
	Repo       repository.Repository
	Signer     token.Signer
	RefreshTTL time.Duration
	Logger     *zap.Logger
	Now        func() time.Time
}

// Mint builds a fresh pair for profile without persisting it.
func (m *CredentialMinter) Mint(p *models.Profile, clientID string, scope []string) (*models.Credential, error) {
	now := clock(m.Now)
	claims := token.Claims{
		FunID:           p.FunID,
		Username:        p.Username,
		CustodialWallet: p.CustodialWallet,
		Scope:           scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Audience:  jwt.ClaimStrings{clientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.Signer.TokenTTL)),
		},
	}
	access, accessExp, err := m.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}
	refresh, err := token.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	return &models.Credential{
		UserID:                p.ID,
		ClientID:              clientID,
		AccessToken:           access,
		RefreshToken:          refresh,
		Scope:                 datatypes.JSONSlice[string](scope),
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: now.Add(m.RefreshTTL),
		LastUsedAt:            &now,
	}, nil
}

// Issue mints a pair, replaces the live pair for (user, client) and stamps
// the profile's last login platform.
func (m *CredentialMinter) Issue(ctx context.Context, p *models.Profile, client *models.OAuthClient, scope []string) (*TokenResponse, error) {
	cred, err := m.Mint(p, client.ClientID, scope)
	if err != nil {
		return nil, err
	}
	if err := m.Repo.UpsertCredential(ctx, cred); err != nil {
		return nil, err
	}
	now := clock(m.Now)
	if err := m.Repo.UpdateLastLogin(ctx, p.ID, platformName(client), now); err != nil && m.Logger != nil {
		m.Logger.Warn("update last login failed", zap.String("user_id", p.ID), zap.Error(err))
	}
	return m.response(cred, p), nil
}

func (m *CredentialMinter) response(cred *models.Credential, p *models.Profile) *TokenResponse {
	expiresIn := int64(cred.AccessTokenExpiresAt.Sub(clock(m.Now)).Round(time.Second) / time.Second)
	return &TokenResponse{
		AccessToken:  cred.AccessToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    expiresIn,
		RefreshToken: cred.RefreshToken,
		Scope:        strings.Join(cred.Scope, " "),
		User:         summarize(p),
	}
}

func platformName(c *models.OAuthClient) string {
	if c == nil {
		return ""
	}
	if c.PlatformName != "" {
		return c.PlatformName
	}
	return c.ClientID
}

// authenticateClient loads an active client and checks its secret when one
// is configured. Secrets stored as bcrypt hashes are compared with bcrypt.
func authenticateClient(ctx context.Context, repo repository.ClientRepository, clientID, secret string) (*models.OAuthClient, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, ErrInvalidRequest("client_id is required")
	}
	client, err := repo.GetActiveClient(ctx, clientID)
	if err != nil {
		return nil, ErrServer(err)
	}
	if client == nil {
		return nil, ErrInvalidClient("unknown or inactive client")
	}
	if client.ClientSecret == "" {
		return client, nil
	}
	if !secretMatches(client.ClientSecret, secret) {
		return nil, ErrInvalidClient("client authentication failed")
	}
	return client, nil
}

func secretMatches(stored, supplied string) bool {
	if supplied == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

const (
	PKCEMethodPlain = "plain"
	PKCEMethodS256  = "S256"
)

func pkceChallenge(verifier, method string) (string, bool) {
	switch method {
	case "", PKCEMethodPlain:
		return verifier, true
	case PKCEMethodS256:
		sum := sha256.Sum256([]byte(verifier))
		return base64.RawURLEncoding.EncodeToString(sum[:]), true
	default:
		return "", false
	}
}

func verifyPKCE(challenge, method, verifier string) bool {
	computed, ok := pkceChallenge(verifier, method)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}

// ParseScope splits a space or comma separated scope string, dropping
// duplicates and keeping first-seen order.
func ParseScope(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == ',' })
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func hasScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
