package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
)

// ErrDuplicateTransaction is returned when a ledger insert collides with an
// existing (client_id, transaction_id).
var ErrDuplicateTransaction = errors.New("duplicate financial transaction")

// Not-found lookups return (nil, nil) throughout.

type ClientRepository interface {
	GetActiveClient(ctx context.Context, clientID string) (*models.OAuthClient, error)
}

type AuthorizationCodeRepository interface {
	// GetUnusedAuthorizationCode returns the code row for (code, clientID) only
	// while is_used=false.
	GetUnusedAuthorizationCode(ctx context.Context, code, clientID string) (*models.AuthorizationCode, error)
	// ClaimAuthorizationCode flips is_used from false to true. It reports false
	// when another caller claimed the code first.
	ClaimAuthorizationCode(ctx context.Context, id uint64, at time.Time) (bool, error)
	DeleteExpiredAuthorizationCodes(ctx context.Context, before time.Time) (int64, error)
}

type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	FindProfileByContact(ctx context.Context, email, phone string) (*models.Profile, error)
	CreateProfile(ctx context.Context, item *models.Profile) error
	UpdateLastLogin(ctx context.Context, userID, platform string, at time.Time) error
	SetCustodialWallet(ctx context.Context, userID, address string) error
	GetSoulNFT(ctx context.Context, userID string) (*models.SoulNFT, error)
	SummarizeRewards(ctx context.Context, userID string) (*RewardSummary, error)
}

type CredentialRepository interface {
	// UpsertCredential replaces the live pair for (user_id, client_id).
	UpsertCredential(ctx context.Context, item *models.Credential) error
	GetCredentialByRefreshToken(ctx context.Context, refreshToken, clientID string) (*models.Credential, error)
	GetCredentialByAccessToken(ctx context.Context, accessToken string) (*models.Credential, error)
	// RotateCredential overwrites the token material of row id only if its
	// refresh token still equals oldRefreshToken and it is not revoked.
	RotateCredential(ctx context.Context, id uint64, oldRefreshToken string, next *models.Credential) (bool, error)
	RevokeCredential(ctx context.Context, id uint64, at time.Time) error
	TouchCredential(ctx context.Context, id uint64, at time.Time) error
	TouchCredentialByUserClient(ctx context.Context, userID, clientID string, at time.Time) error
	DeleteDeadCredentials(ctx context.Context, before time.Time) (int64, error)
}

type PlatformDataRepository interface {
	GetPlatformUserData(ctx context.Context, userID, clientID string) (*models.PlatformUserData, error)
	// SavePlatformUserData writes item if the stored sync_count still equals
	// expectedSyncCount (0 means the row must not exist yet).
	SavePlatformUserData(ctx context.Context, item *models.PlatformUserData, expectedSyncCount int64) (bool, error)
}

type FinancialRepository interface {
	GetPlatformFinancialData(ctx context.Context, userID, clientID string) (*models.PlatformFinancialData, error)
	// ApplyFinancialDelta adds delta to the stored totals, clamping each at 0,
	// and increments sync_count.
	ApplyFinancialDelta(ctx context.Context, userID, clientID string, delta models.FinancialTotals, at time.Time) (*models.PlatformFinancialData, error)
	// SetFinancialTotals overwrites only the named columns.
	SetFinancialTotals(ctx context.Context, userID, clientID string, values map[string]int64, at time.Time) (*models.PlatformFinancialData, error)
	GetFinancialTransaction(ctx context.Context, clientID, transactionID string) (*models.FinancialTransaction, error)
	HasFinancialTransactions(ctx context.Context, userID, clientID string) (bool, error)
	// RecordFinancialTransaction inserts item and applies delta atomically.
	// A uniqueness collision yields ErrDuplicateTransaction and no writes.
	RecordFinancialTransaction(ctx context.Context, item *models.FinancialTransaction, delta models.FinancialTotals) (*models.PlatformFinancialData, error)
}

type RateLimitRepository interface {
	// IncrementRateLimit atomically bumps key, starting a fresh window when the
	// previous one has elapsed, and returns the post-increment count.
	IncrementRateLimit(ctx context.Context, key string, window time.Duration, now time.Time) (count int64, resetAt time.Time, err error)
	DeleteExpiredRateLimits(ctx context.Context, before time.Time) (int64, error)
}

type Repository interface {
	ClientRepository
	AuthorizationCodeRepository
	ProfileRepository
	CredentialRepository
	PlatformDataRepository
	FinancialRepository
	RateLimitRepository

	Ping(ctx context.Context) error
}

type RewardSummary struct {
	PendingCount   int64 `json:"pending_count"`
	PendingAmount  int64 `json:"pending_amount"`
	ApprovedCount  int64 `json:"approved_count"`
	ApprovedAmount int64 `json:"approved_amount"`
}

// FinancialColumns lists the aggregate columns accepted by SetFinancialTotals.
var FinancialColumns = []string{
	"total_deposit",
	"total_withdraw",
	"total_bet",
	"total_win",
	"total_loss",
	"total_profit",
}
