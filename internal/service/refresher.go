package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
)

type RefreshInput struct {
	GrantType    string `form:"grant_type" json:"grant_type"`
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
}

// TokenRefresher rotates a credential pair. Every successful refresh
// replaces the refresh token, so each one is usable once.
type TokenRefresher struct {
	Repo   repository.Repository
	Minter *CredentialMinter
	Logger *zap.Logger
	Now    func() time.Time
}

func (s *TokenRefresher) Refresh(ctx context.Context, in RefreshInput) (*TokenResponse, error) {
	if in.GrantType != GrantRefreshToken {
		return nil, ErrInvalidRequest("grant_type must be refresh_token")
	}
	refresh := strings.TrimSpace(in.RefreshToken)
	if refresh == "" {
		return nil, ErrInvalidRequest("refresh_token is required")
	}
	client, err := s.lookupClient(ctx, in)
	if err != nil {
		return nil, err
	}

	cred, err := s.Repo.GetCredentialByRefreshToken(ctx, refresh, client.ClientID)
	if err != nil {
		return nil, ErrServer(err)
	}
	if cred == nil {
		return nil, ErrInvalidGrant("refresh token is invalid or revoked")
	}
	now := clock(s.Now)
	if !cred.RefreshTokenExpiresAt.After(now) {
		if err := s.Repo.RevokeCredential(ctx, cred.ID, now); err != nil && s.Logger != nil {
			s.Logger.Warn("revoke expired credential failed", zap.Uint64("credential_id", cred.ID), zap.Error(err))
		}
		return nil, ErrInvalidGrant("refresh token expired")
	}

	profile, err := s.Repo.GetProfile(ctx, cred.UserID)
	if err != nil {
		return nil, ErrServer(err)
	}
	if profile == nil {
		return nil, ErrInvalidGrant("user no longer exists")
	}

	next, err := s.Minter.Mint(profile, client.ClientID, []string(cred.Scope))
	if err != nil {
		return nil, ErrServer(err)
	}
	rotated, err := s.Repo.RotateCredential(ctx, cred.ID, refresh, next)
	if err != nil {
		return nil, ErrServer(err)
	}
	if !rotated {
		return nil, ErrInvalidGrant("refresh token already rotated")
	}
	return s.Minter.response(next, profile), nil
}

// lookupClient requires an active client. A supplied secret must match.
func (s *TokenRefresher) lookupClient(ctx context.Context, in RefreshInput) (*models.OAuthClient, error) {
	if in.ClientSecret != "" {
		return authenticateClient(ctx, s.Repo, in.ClientID, in.ClientSecret)
	}
	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" {
		return nil, ErrInvalidRequest("client_id is required")
	}
	client, err := s.Repo.GetActiveClient(ctx, clientID)
	if err != nil {
		return nil, ErrServer(err)
	}
	if client == nil {
		return nil, ErrInvalidClient("unknown or inactive client")
	}
	return client, nil
}
