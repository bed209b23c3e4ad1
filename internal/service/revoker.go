package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
)

type RevokeInput struct {
	Token         string `form:"token" json:"token"`
	TokenTypeHint string `form:"token_type_hint" json:"token_type_hint"`
	ClientID      string `form:"client_id" json:"client_id"`
	ClientSecret  string `form:"client_secret" json:"client_secret"`
}

// TokenRevoker ends a credential pair on request of the owning client.
type TokenRevoker struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Now    func() time.Time
}

// Revoke reports whether a live pair was found and revoked. Unknown tokens
// are not an error. The refresh token and datastore lookups stop working at
// once; a signed access token is verified without the datastore and stays
// usable until its exp.
func (s *TokenRevoker) Revoke(ctx context.Context, in RevokeInput) (bool, error) {
	raw := strings.TrimSpace(in.Token)
	if raw == "" {
		return false, ErrInvalidRequest("token is required")
	}
	client, err := authenticateClient(ctx, s.Repo, in.ClientID, in.ClientSecret)
	if err != nil {
		return false, err
	}

	cred, err := s.find(ctx, raw, in.TokenTypeHint, client.ClientID)
	if err != nil {
		return false, ErrServer(err)
	}
	if cred == nil {
		return false, nil
	}
	if err := s.Repo.RevokeCredential(ctx, cred.ID, clock(s.Now)); err != nil {
		return false, ErrServer(err)
	}
	if s.Logger != nil {
		s.Logger.Info("credential revoked", zap.String("client_id", client.ClientID), zap.String("user_id", cred.UserID))
	}
	return true, nil
}

func (s *TokenRevoker) find(ctx context.Context, raw, hint, clientID string) (*models.Credential, error) {
	lookups := []func() (*models.Credential, error){
		func() (*models.Credential, error) { return s.Repo.GetCredentialByRefreshToken(ctx, raw, clientID) },
		func() (*models.Credential, error) { return s.Repo.GetCredentialByAccessToken(ctx, raw) },
	}
	if hint == "access_token" {
		lookups[0], lookups[1] = lookups[1], lookups[0]
	}
	for _, lookup := range lookups {
		cred, err := lookup()
		if err != nil {
			return nil, err
		}
		if cred != nil && cred.ClientID == clientID {
			return cred, nil
		}
	}
	return nil, nil
}
