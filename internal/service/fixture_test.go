package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/config"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/ratelimit"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository/memory"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/token"
)

const (
	testClient = "farm_prod"
	testUser   = "user-1"
)

type fixture struct {
	now      time.Time
	store    *memory.Store
	signer   token.Signer
	minter   *CredentialMinter
	verifier *TokenVerifier
	limiter  *ratelimit.Limiter
	rate     config.RateLimitConfig
	limits   DocumentLimits
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), store: memory.New()}
	clock := func() time.Time { return f.now }

	key, err := token.DeriveSigningKey("test-secret", "sso.fun.rich")
	if err != nil {
		t.Fatalf("derive key: %v", err)
	}
	f.signer = token.Signer{Key: key, Issuer: "fun-profile-sso", TokenTTL: time.Hour, Now: clock}
	f.minter = &CredentialMinter{Repo: f.store, Signer: f.signer, RefreshTTL: 720 * time.Hour, Now: clock}
	f.verifier = &TokenVerifier{Repo: f.store, Signer: f.signer, Now: clock}
	f.limiter = &ratelimit.Limiter{Counter: ratelimit.StoreCounter{Repo: f.store}, Now: clock}
	f.rate = config.RateLimitConfig{
		Window:            time.Minute,
		SyncClientLimit:   60,
		SyncUserLimit:     120,
		RegisterLimit:     20,
		RegisterWindow:    time.Minute,
		LedgerClientLimit: 300,
	}
	f.limits = DocumentLimits{
		MaxBytes:        51200,
		MaxDepth:        5,
		MaxStringLength: 1000,
		MaxArrayLength:  100,
		MaxAbsNumber:    1e15,
		MaxErrors:       10,
	}

	f.store.PutClient(models.OAuthClient{ClientID: testClient, PlatformName: "Fun Farm", IsActive: true})
	email := "alice@fun.rich"
	f.store.PutProfile(models.Profile{
		ID:         testUser,
		FunID:      "FUN000001",
		Username:   "alice",
		Email:      &email,
		IsVerified: true,
		CreatedAt:  f.now.Add(-24 * time.Hour),
	})
	return f
}

func (f *fixture) clock() func() time.Time {
	return func() time.Time { return f.now }
}

// issue mints and stores a live pair for (userID, clientID).
func (f *fixture) issue(t *testing.T, userID, clientID string, scope ...string) *TokenResponse {
	t.Helper()
	ctx := context.Background()
	p, err := f.store.GetProfile(ctx, userID)
	if err != nil || p == nil {
		t.Fatalf("profile %s: %v", userID, err)
	}
	c, err := f.store.GetActiveClient(ctx, clientID)
	if err != nil || c == nil {
		t.Fatalf("client %s: %v", clientID, err)
	}
	resp, err := f.minter.Issue(ctx, p, c, scope)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return resp
}

func requireCode(t *testing.T, err error, code string) *OAuthError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	var oe *OAuthError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OAuthError %s, got %T: %v", code, err, err)
	}
	if oe.Code != code {
		t.Fatalf("code=%s want=%s (%s)", oe.Code, code, oe.Description)
	}
	return oe
}

func clientRow(id string) models.OAuthClient {
	return models.OAuthClient{ClientID: id, PlatformName: id, IsActive: true}
}
