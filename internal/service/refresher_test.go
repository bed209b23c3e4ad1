package service

import (
	"context"
	"testing"
	"time"
)

func newRefresher(f *fixture) *TokenRefresher {
	return &TokenRefresher{Repo: f.store, Minter: f.minter, Now: f.clock()}
}

func TestRefreshRotates(t *testing.T) {
	f := newFixture(t)
	first := f.issue(t, testUser, testClient, "profile")
	s := newRefresher(f)
	ctx := context.Background()

	f.now = f.now.Add(time.Minute)
	next, err := s.Refresh(ctx, RefreshInput{GrantType: GrantRefreshToken, RefreshToken: first.RefreshToken, ClientID: testClient})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken == first.RefreshToken || next.AccessToken == first.AccessToken {
		t.Fatalf("pair not rotated")
	}
	if len(next.RefreshToken) != 96 || next.ExpiresIn != 3600 || next.Scope != "profile" {
		t.Fatalf("unexpected response %+v", next)
	}

	_, err = s.Refresh(ctx, RefreshInput{GrantType: GrantRefreshToken, RefreshToken: first.RefreshToken, ClientID: testClient})
	requireCode(t, err, CodeInvalidGrant)

	cred, _ := f.store.CredentialFor(testUser, testClient)
	if cred.RefreshToken != next.RefreshToken {
		t.Fatalf("stored refresh token not rotated")
	}
}

func TestRefreshExpiredRevokes(t *testing.T) {
	f := newFixture(t)
	first := f.issue(t, testUser, testClient, "profile")
	f.now = f.now.Add(721 * time.Hour)

	_, err := newRefresher(f).Refresh(context.Background(), RefreshInput{GrantType: GrantRefreshToken, RefreshToken: first.RefreshToken, ClientID: testClient})
	requireCode(t, err, CodeInvalidGrant)

	cred, _ := f.store.CredentialFor(testUser, testClient)
	if !cred.IsRevoked || cred.RevokedAt == nil {
		t.Fatalf("expired credential not revoked")
	}
}

func TestRefreshWrongClient(t *testing.T) {
	f := newFixture(t)
	first := f.issue(t, testUser, testClient, "profile")
	f.store.PutClient(clientRow("other_app"))
	_, err := newRefresher(f).Refresh(context.Background(), RefreshInput{GrantType: GrantRefreshToken, RefreshToken: first.RefreshToken, ClientID: "other_app"})
	requireCode(t, err, CodeInvalidGrant)
}

func TestRefreshRequiresToken(t *testing.T) {
	f := newFixture(t)
	_, err := newRefresher(f).Refresh(context.Background(), RefreshInput{GrantType: GrantRefreshToken, ClientID: testClient})
	requireCode(t, err, CodeInvalidRequest)
}
