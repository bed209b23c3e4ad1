package gormrepository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/db"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), db.Config())
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))
	return New(gdb), gdb
}

func strPtr(s string) *string { return &s }

func TestIncrementRateLimit(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for i := int64(1); i <= 3; i++ {
		count, resetAt, err := s.IncrementRateLimit(ctx, "sync:client:farm", time.Minute, testNow)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		assert.True(t, resetAt.Equal(testNow.Add(time.Minute)), "reset at %s", resetAt)
	}

	later := testNow.Add(2 * time.Minute)
	count, resetAt, err := s.IncrementRateLimit(ctx, "sync:client:farm", time.Minute, later)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.True(t, resetAt.Equal(later.Add(time.Minute)))

	count, _, err = s.IncrementRateLimit(ctx, "sync:client:other", time.Minute, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	n, err := s.DeleteExpiredRateLimits(ctx, testNow.Add(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRecordFinancialTransactionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	first := &models.FinancialTransaction{
		UserID:        "user-1",
		ClientID:      "farm",
		TransactionID: "tx-1",
		Action:        "DEPOSIT",
		Amount:        100,
		Currency:      "CAMLY",
		Metadata:      datatypes.JSON(`{"source":"shop"}`),
		CreatedAt:     testNow,
	}
	totals, err := s.RecordFinancialTransaction(ctx, first, models.FinancialTotals{TotalDeposit: 100})
	require.NoError(t, err)
	require.NotNil(t, totals)
	assert.NotZero(t, first.ID)
	assert.Equal(t, int64(100), totals.TotalDeposit)
	assert.Equal(t, int64(1), totals.SyncCount)

	dup := &models.FinancialTransaction{
		UserID:        "user-1",
		ClientID:      "farm",
		TransactionID: "tx-1",
		Action:        "DEPOSIT",
		Amount:        100,
		Currency:      "CAMLY",
		CreatedAt:     testNow,
	}
	_, err = s.RecordFinancialTransaction(ctx, dup, models.FinancialTotals{TotalDeposit: 100})
	require.ErrorIs(t, err, repository.ErrDuplicateTransaction)

	current, err := s.GetPlatformFinancialData(ctx, "user-1", "farm")
	require.NoError(t, err)
	assert.Equal(t, int64(100), current.TotalDeposit)
	assert.Equal(t, int64(1), current.SyncCount)

	stored, err := s.GetFinancialTransaction(ctx, "farm", "tx-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, first.ID, stored.ID)
	assert.JSONEq(t, `{"source":"shop"}`, string(stored.Metadata))

	// The same transaction id from another client is a different key.
	other := &models.FinancialTransaction{
		UserID:        "user-1",
		ClientID:      "arcade",
		TransactionID: "tx-1",
		Action:        "BET",
		Amount:        5,
		Currency:      "CAMLY",
		CreatedAt:     testNow,
	}
	_, err = s.RecordFinancialTransaction(ctx, other, models.FinancialTotals{TotalBet: 5})
	require.NoError(t, err)

	has, err := s.HasFinancialTransactions(ctx, "user-1", "farm")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = s.HasFinancialTransactions(ctx, "user-2", "farm")
	require.NoError(t, err)
	assert.False(t, has)

	missing, err := s.GetFinancialTransaction(ctx, "farm", "tx-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestApplyFinancialDeltaClampsAtZero(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	out, err := s.ApplyFinancialDelta(ctx, "user-1", "farm", models.FinancialTotals{TotalProfit: -50}, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.TotalProfit)

	out, err = s.ApplyFinancialDelta(ctx, "user-1", "farm", models.FinancialTotals{TotalWin: 30, TotalProfit: 30}, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(30), out.TotalWin)
	assert.Equal(t, int64(30), out.TotalProfit)

	out, err = s.ApplyFinancialDelta(ctx, "user-1", "farm", models.FinancialTotals{TotalLoss: 100, TotalProfit: -100}, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(100), out.TotalLoss)
	assert.Equal(t, int64(0), out.TotalProfit)
	assert.Equal(t, int64(3), out.SyncCount)
}

func TestSetFinancialTotalsOverwritesNamedColumns(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.ApplyFinancialDelta(ctx, "user-1", "farm", models.FinancialTotals{TotalBet: 40}, testNow)
	require.NoError(t, err)

	out, err := s.SetFinancialTotals(ctx, "user-1", "farm", map[string]int64{"total_deposit": 500, "total_loss": -3}, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(500), out.TotalDeposit)
	assert.Equal(t, int64(0), out.TotalLoss)
	assert.Equal(t, int64(40), out.TotalBet)
	assert.Equal(t, int64(2), out.SyncCount)

	_, err = s.SetFinancialTotals(ctx, "user-1", "farm", map[string]int64{"balance": 1}, testNow)
	require.Error(t, err)
}

func TestSavePlatformUserDataCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	row := func(count int64, data string) *models.PlatformUserData {
		return &models.PlatformUserData{
			UserID:       "user-1",
			ClientID:     "farm",
			Data:         datatypes.JSON(data),
			SyncCount:    count,
			LastSyncMode: "merge",
			SyncedAt:     testNow,
		}
	}

	ok, err := s.SavePlatformUserData(ctx, row(1, `{"level":1}`), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SavePlatformUserData(ctx, row(1, `{"level":9}`), 0)
	require.NoError(t, err)
	assert.False(t, ok, "insert must lose against an existing row")

	ok, err = s.SavePlatformUserData(ctx, row(2, `{"level":2}`), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SavePlatformUserData(ctx, row(2, `{"level":3}`), 1)
	require.NoError(t, err)
	assert.False(t, ok, "stale sync_count must not overwrite")

	got, err := s.GetPlatformUserData(ctx, "user-1", "farm")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.SyncCount)
	assert.JSONEq(t, `{"level":2}`, string(got.Data))

	none, err := s.GetPlatformUserData(ctx, "user-1", "arcade")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestClaimAuthorizationCode(t *testing.T) {
	ctx := context.Background()
	s, gdb := newTestStore(t)

	code := &models.AuthorizationCode{
		Code:        "code-1",
		UserID:      "user-1",
		ClientID:    "farm",
		RedirectURI: "https://farm.example/cb",
		Scope:       datatypes.JSONSlice[string]{"profile"},
		ExpiresAt:   testNow.Add(10 * time.Minute),
	}
	require.NoError(t, gdb.Create(code).Error)

	got, err := s.GetUnusedAuthorizationCode(ctx, "code-1", "farm")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"profile"}, []string(got.Scope))

	wrongClient, err := s.GetUnusedAuthorizationCode(ctx, "code-1", "arcade")
	require.NoError(t, err)
	assert.Nil(t, wrongClient)

	ok, err := s.ClaimAuthorizationCode(ctx, got.ID, testNow)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ClaimAuthorizationCode(ctx, got.ID, testNow)
	require.NoError(t, err)
	assert.False(t, ok)

	used, err := s.GetUnusedAuthorizationCode(ctx, "code-1", "farm")
	require.NoError(t, err)
	assert.Nil(t, used)

	n, err := s.DeleteExpiredAuthorizationCodes(ctx, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCredentialLifecycle(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.UpsertCredential(ctx, &models.Credential{
		UserID:                "user-1",
		ClientID:              "farm",
		AccessToken:           "access-1",
		RefreshToken:          "refresh-1",
		Scope:                 datatypes.JSONSlice[string]{"profile"},
		AccessTokenExpiresAt:  testNow.Add(time.Hour),
		RefreshTokenExpiresAt: testNow.Add(30 * 24 * time.Hour),
	}))

	cred, err := s.GetCredentialByRefreshToken(ctx, "refresh-1", "farm")
	require.NoError(t, err)
	require.NotNil(t, cred)

	foreign, err := s.GetCredentialByRefreshToken(ctx, "refresh-1", "arcade")
	require.NoError(t, err)
	assert.Nil(t, foreign)

	next := &models.Credential{
		AccessToken:           "access-2",
		RefreshToken:          "refresh-2",
		Scope:                 datatypes.JSONSlice[string]{"profile", "wallet"},
		AccessTokenExpiresAt:  testNow.Add(2 * time.Hour),
		RefreshTokenExpiresAt: testNow.Add(31 * 24 * time.Hour),
		LastUsedAt:            &testNow,
	}
	ok, err := s.RotateCredential(ctx, cred.ID, "refresh-1", next)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.RotateCredential(ctx, cred.ID, "refresh-1", next)
	require.NoError(t, err)
	assert.False(t, ok, "a rotated refresh token cannot rotate twice")

	old, err := s.GetCredentialByRefreshToken(ctx, "refresh-1", "farm")
	require.NoError(t, err)
	assert.Nil(t, old)

	byAccess, err := s.GetCredentialByAccessToken(ctx, "access-2")
	require.NoError(t, err)
	require.NotNil(t, byAccess)
	assert.Equal(t, []string{"profile", "wallet"}, []string(byAccess.Scope))

	// A second login replaces the pair in place.
	require.NoError(t, s.UpsertCredential(ctx, &models.Credential{
		UserID:                "user-1",
		ClientID:              "farm",
		AccessToken:           "access-3",
		RefreshToken:          "refresh-3",
		AccessTokenExpiresAt:  testNow.Add(time.Hour),
		RefreshTokenExpiresAt: testNow.Add(30 * 24 * time.Hour),
	}))
	replaced, err := s.GetCredentialByRefreshToken(ctx, "refresh-3", "farm")
	require.NoError(t, err)
	require.NotNil(t, replaced)
	assert.Equal(t, cred.ID, replaced.ID)

	require.NoError(t, s.RevokeCredential(ctx, replaced.ID, testNow))
	revoked, err := s.GetCredentialByAccessToken(ctx, "access-3")
	require.NoError(t, err)
	assert.Nil(t, revoked)

	n, err := s.DeleteDeadCredentials(ctx, testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFindProfileByContact(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.CreateProfile(ctx, &models.Profile{
		ID:       "user-1",
		FunID:    "FUN000001",
		Username: "alice",
		Email:    strPtr("alice@fun.rich"),
	}))
	require.NoError(t, s.CreateProfile(ctx, &models.Profile{
		ID:       "user-2",
		FunID:    "FUN000002",
		Username: "bob",
		Phone:    strPtr("+84900000002"),
	}))

	p, err := s.FindProfileByContact(ctx, " Alice@Fun.Rich ", "")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "user-1", p.ID)

	p, err = s.FindProfileByContact(ctx, "", "+84900000002")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "user-2", p.ID)

	p, err = s.FindProfileByContact(ctx, "nobody@fun.rich", "+84900000002")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "user-2", p.ID)

	p, err = s.FindProfileByContact(ctx, "nobody@fun.rich", "")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = s.FindProfileByContact(ctx, "", "")
	require.NoError(t, err)
	assert.Nil(t, p)

	err = s.CreateProfile(ctx, &models.Profile{
		ID:       "user-3",
		FunID:    "FUN000003",
		Username: "alice2",
		Email:    strPtr("alice@fun.rich"),
	})
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))

	require.NoError(t, s.SetCustodialWallet(ctx, "user-1", "0xabc"))
	require.NoError(t, s.UpdateLastLogin(ctx, "user-1", "Fun Farm", testNow))
	p, err = s.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", p.CustodialWallet)
	assert.Equal(t, "Fun Farm", p.LastLoginPlatform)
}

func TestSummarizeRewards(t *testing.T) {
	ctx := context.Background()
	s, gdb := newTestStore(t)

	none, err := s.SummarizeRewards(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, none)

	rows := []models.Reward{
		{UserID: "user-1", Amount: 10, Status: models.RewardStatusPending},
		{UserID: "user-1", Amount: 20, Status: models.RewardStatusPending},
		{UserID: "user-1", Amount: 5, Status: models.RewardStatusApproved},
		{UserID: "user-1", Amount: 99, Status: "rejected"},
		{UserID: "user-2", Amount: 7, Status: models.RewardStatusPending},
	}
	require.NoError(t, gdb.Create(&rows).Error)

	sum, err := s.SummarizeRewards(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, repository.RewardSummary{
		PendingCount:   2,
		PendingAmount:  30,
		ApprovedCount:  1,
		ApprovedAmount: 5,
	}, *sum)
}

func TestGetActiveClient(t *testing.T) {
	ctx := context.Background()
	s, gdb := newTestStore(t)

	require.NoError(t, gdb.Create(&models.OAuthClient{ClientID: "farm", PlatformName: "Fun Farm", IsActive: true}).Error)
	require.NoError(t, gdb.Create(&models.OAuthClient{ClientID: "old", PlatformName: "Old", IsActive: false}).Error)

	c, err := s.GetActiveClient(ctx, "farm")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Fun Farm", c.PlatformName)

	c, err = s.GetActiveClient(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, c)

	require.NoError(t, s.Ping(ctx))
}
