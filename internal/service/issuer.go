package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
)

const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
)

type ExchangeInput struct {
	GrantType    string `form:"grant_type" json:"grant_type"`
	Code         string `form:"code" json:"code"`
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
	RedirectURI  string `form:"redirect_uri" json:"redirect_uri"`
	CodeVerifier string `form:"code_verifier" json:"code_verifier"`
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// TokenIssuer exchanges one-time authorization codes for credential pairs.
type TokenIssuer struct {
	Repo   repository.Repository
	Minter *CredentialMinter
	Logger *zap.Logger
	Now    func() time.Time
}

func (s *TokenIssuer) Exchange(ctx context.Context, in ExchangeInput) (*TokenResponse, error) {
	if in.GrantType != GrantAuthorizationCode {
		return nil, ErrInvalidRequest("grant_type must be authorization_code")
	}
	code := strings.TrimSpace(in.Code)
	if code == "" || strings.TrimSpace(in.RedirectURI) == "" {
		return nil, ErrInvalidRequest("code and redirect_uri are required")
	}

	client, err := authenticateClient(ctx, s.Repo, in.ClientID, in.ClientSecret)
	if err != nil {
		return nil, err
	}

	authCode, err := s.Repo.GetUnusedAuthorizationCode(ctx, code, client.ClientID)
	if err != nil {
		return nil, ErrServer(err)
	}
	if authCode == nil {
		return nil, ErrInvalidGrant("authorization code is invalid or already used")
	}
	now := clock(s.Now)
	if !authCode.ExpiresAt.After(now) {
		return nil, ErrInvalidGrant("authorization code expired")
	}
	if authCode.RedirectURI != in.RedirectURI {
		return nil, ErrInvalidGrant("redirect_uri does not match")
	}
	if authCode.CodeChallenge != "" {
		if in.CodeVerifier == "" {
			return nil, ErrInvalidGrant("code_verifier is required")
		}
		if !verifyPKCE(authCode.CodeChallenge, authCode.CodeChallengeMethod, in.CodeVerifier) {
			return nil, ErrInvalidGrant("code_verifier does not match")
		}
	}

	// The code stays used even if issuance below fails.
	claimed, err := s.Repo.ClaimAuthorizationCode(ctx, authCode.ID, now)
	if err != nil {
		return nil, ErrServer(err)
	}
	if !claimed {
		return nil, ErrInvalidGrant("authorization code already used")
	}

	profile, err := s.Repo.GetProfile(ctx, authCode.UserID)
	if err != nil {
		return nil, ErrServer(err)
	}
	if profile == nil {
		return nil, ErrInvalidGrant("user for authorization code no longer exists")
	}

	resp, err := s.Minter.Issue(ctx, profile, client, []string(authCode.Scope))
	if err != nil {
		return nil, ErrServer(err)
	}
	if s.Logger != nil {
		s.Logger.Info("authorization code exchanged",
			zap.String("client_id", client.ClientID),
			zap.String("user_id", profile.ID),
		)
	}
	return resp, nil
}
