package ratelimit

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
)

// Counter is a durable fixed-window counter. Increment must be atomic on the
// backing store.
type Counter interface {
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (count int64, resetAt time.Time, err error)
}

type Result struct {
	Allowed      bool      `json:"allowed"`
	CurrentCount int64     `json:"current_count"`
	Remaining    int64     `json:"remaining"`
	Limit        int       `json:"limit"`
	ResetAt      time.Time `json:"reset_at"`
}

// RetryAfter is the whole number of seconds until the window resets.
func (r Result) RetryAfter(now time.Time) int {
	if r.ResetAt.IsZero() || !r.ResetAt.After(now) {
		return 1
	}
	return int(math.Ceil(r.ResetAt.Sub(now).Seconds()))
}

type Limiter struct {
	Counter Counter
	Logger  *zap.Logger
	Now     func() time.Time
}

func (l *Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

// Check counts one hit against key. Store failures allow the request.
func (l *Limiter) Check(ctx context.Context, key string, limit int, window time.Duration) Result {
	if l == nil || l.Counter == nil || limit <= 0 {
		return Result{Allowed: true, Limit: limit}
	}
	now := l.now()
	count, resetAt, err := l.Counter.Increment(ctx, key, window, now)
	if err != nil {
		if l.Logger != nil {
			l.Logger.Warn("rate limit check failed, allowing request", zap.String("key", key), zap.Error(err))
		}
		return Result{Allowed: true, Limit: limit, Remaining: int64(limit)}
	}
	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:      count <= int64(limit),
		CurrentCount: count,
		Remaining:    remaining,
		Limit:        limit,
		ResetAt:      resetAt,
	}
}

// StoreCounter keeps counters in the relational datastore.
type StoreCounter struct {
	Repo repository.RateLimitRepository
}

func (c StoreCounter) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (int64, time.Time, error) {
	return c.Repo.IncrementRateLimit(ctx, key, window, now)
}

func SyncClientKey(clientID string) string { return "sync:client:" + clientID }
func SyncUserKey(userID string) string     { return "sync:user:" + userID }
func RegisterKey(clientID string) string   { return "register:client:" + clientID }
func LedgerClientKey(clientID string) string {
	return "ledger:client:" + clientID
}
