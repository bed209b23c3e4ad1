package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/token"
)

func TestResolveSignedFastPath(t *testing.T) {
	f := newFixture(t)
	resp := f.issue(t, testUser, testClient, "profile", "wallet")

	id, err := f.verifier.Resolve(context.Background(), resp.AccessToken)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.Kind != token.KindSigned || id.UserID != testUser || id.ClientID != testClient {
		t.Fatalf("identity=%+v", id)
	}
	if !id.HasScope("wallet") || id.HasScope("soul") {
		t.Fatalf("scopes=%v", id.Scopes)
	}
	if id.CredentialID != 0 {
		t.Fatalf("signed path hit the datastore")
	}
}

func TestResolveOpaqueSlowPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cred := &models.Credential{
		UserID:                testUser,
		ClientID:              testClient,
		AccessToken:           "legacy-opaque-token",
		RefreshToken:          "legacy-refresh",
		Scope:                 datatypes.JSONSlice[string]{"profile"},
		AccessTokenExpiresAt:  f.now.Add(time.Hour),
		RefreshTokenExpiresAt: f.now.Add(720 * time.Hour),
	}
	if err := f.store.UpsertCredential(ctx, cred); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	id, err := f.verifier.Resolve(ctx, "legacy-opaque-token")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.Kind != token.KindOpaque || id.CredentialID == 0 || id.FunID != "FUN000001" {
		t.Fatalf("identity=%+v", id)
	}
	stored, _ := f.store.CredentialFor(testUser, testClient)
	if stored.LastUsedAt == nil || !stored.LastUsedAt.Equal(f.now) {
		t.Fatalf("last_used_at not touched: %v", stored.LastUsedAt)
	}

	f.now = f.now.Add(2 * time.Hour)
	_, err = f.verifier.Resolve(ctx, "legacy-opaque-token")
	requireCode(t, err, CodeTokenExpired)
}

func TestResolveExpiredSignedFallsBack(t *testing.T) {
	f := newFixture(t)
	resp := f.issue(t, testUser, testClient, "profile")
	f.now = f.now.Add(2 * time.Hour)

	_, err := f.verifier.Resolve(context.Background(), resp.AccessToken)
	requireCode(t, err, CodeTokenExpired)

	_, err = f.verifier.Introspect(context.Background(), resp.AccessToken)
	requireCode(t, err, CodeInvalidToken)
}

func TestResolveRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.verifier.Resolve(ctx, "")
	requireCode(t, err, CodeUnauthorized)
	_, err = f.verifier.Resolve(ctx, "not-a-known-token")
	requireCode(t, err, CodeInvalidToken)

	// A token signed under another key is opaque and unknown.
	other := f.signer
	other.Key = []byte("another-key")
	raw, _, err := other.Sign(token.Claims{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = f.verifier.Resolve(ctx, raw)
	requireCode(t, err, CodeInvalidToken)
}

func introspectJSON(t *testing.T, f *fixture, raw string) map[string]json.RawMessage {
	t.Helper()
	out, err := f.verifier.Introspect(context.Background(), raw)
	if err != nil {
		t.Fatalf("introspect: %v", err)
	}
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func TestIntrospectScopedSlices(t *testing.T) {
	f := newFixture(t)
	f.store.PutPlatformUserData(models.PlatformUserData{UserID: testUser, ClientID: testClient, Data: datatypes.JSON(`{"level":3}`)})
	resp := f.issue(t, testUser, testClient, "profile", "wallet")

	m := introspectJSON(t, f, resp.AccessToken)
	if string(m["active"]) != "true" || string(m["client_id"]) != `"farm_prod"` {
		t.Fatalf("header fields: %s %s", m["active"], m["client_id"])
	}
	if _, ok := m["platform_data"]; ok {
		t.Fatalf("platform_data exposed without scope")
	}
	if _, ok := m["soul"]; ok {
		t.Fatalf("soul exposed without scope")
	}
	if string(m["wallet"]) != "null" {
		t.Fatalf("wallet=%s want null", m["wallet"])
	}
	var profile ProfileSlice
	if err := json.Unmarshal(m["profile"], &profile); err != nil || profile.Username != "alice" {
		t.Fatalf("profile=%s err=%v", m["profile"], err)
	}
}

func TestIntrospectNullSlicesForMissingRows(t *testing.T) {
	f := newFixture(t)
	resp := f.issue(t, testUser, testClient, "soul", "rewards", "platform_data")
	m := introspectJSON(t, f, resp.AccessToken)
	for _, k := range []string{"soul", "rewards", "platform_data"} {
		if string(m[k]) != "null" {
			t.Fatalf("%s=%s want null", k, m[k])
		}
	}
}

func TestIntrospectRewardsAndSoul(t *testing.T) {
	f := newFixture(t)
	f.store.PutSoulNFT(models.SoulNFT{UserID: testUser, TokenID: "42", SoulElement: "fire", Level: 2})
	f.store.PutReward(models.Reward{UserID: testUser, Amount: 100, Status: models.RewardStatusPending})
	f.store.PutReward(models.Reward{UserID: testUser, Amount: 50, Status: models.RewardStatusApproved})
	f.store.PutReward(models.Reward{UserID: "someone-else", Amount: 999, Status: models.RewardStatusApproved})
	resp := f.issue(t, testUser, testClient, "soul", "rewards")

	m := introspectJSON(t, f, resp.AccessToken)
	var soul SoulSlice
	if err := json.Unmarshal(m["soul"], &soul); err != nil || soul.SoulElement != "fire" || soul.Level != 2 {
		t.Fatalf("soul=%s err=%v", m["soul"], err)
	}
	out, err := f.verifier.Introspect(context.Background(), resp.AccessToken)
	if err != nil {
		t.Fatalf("introspect: %v", err)
	}
	b, _ := json.Marshal(out.Slices["rewards"])
	var rewards struct {
		PendingCount   int64 `json:"pending_count"`
		PendingAmount  int64 `json:"pending_amount"`
		ApprovedCount  int64 `json:"approved_count"`
		ApprovedAmount int64 `json:"approved_amount"`
	}
	if err := json.Unmarshal(b, &rewards); err != nil {
		t.Fatalf("rewards: %v", err)
	}
	if rewards.PendingAmount != 100 || rewards.ApprovedAmount != 50 || rewards.ApprovedCount != 1 {
		t.Fatalf("rewards=%+v", rewards)
	}
}

func TestIntrospectPlatformDataIsolation(t *testing.T) {
	f := newFixture(t)
	f.store.PutClient(clientRow("other_app"))
	f.store.PutPlatformUserData(models.PlatformUserData{UserID: testUser, ClientID: testClient, Data: datatypes.JSON(`{"farm":"mine"}`)})
	f.store.PutPlatformUserData(models.PlatformUserData{UserID: testUser, ClientID: "other_app", Data: datatypes.JSON(`{"secret":"theirs"}`)})

	resp := f.issue(t, testUser, testClient, "platform_data")
	m := introspectJSON(t, f, resp.AccessToken)
	var doc map[string]any
	if err := json.Unmarshal(m["platform_data"], &doc); err != nil {
		t.Fatalf("platform_data=%s: %v", m["platform_data"], err)
	}
	if doc["farm"] != "mine" || doc["secret"] != nil {
		t.Fatalf("platform_data=%v", doc)
	}
}
