package gormrepository

import (
	"context"
	"time"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
)

const incrementRateLimitSQL = `INSERT INTO rate_limit_counters ("key", count, window_reset_time, updated_at)
VALUES (?, 1, ?, ?)
ON CONFLICT ("key") DO UPDATE SET
	count = CASE WHEN rate_limit_counters.window_reset_time <= ? THEN 1 ELSE rate_limit_counters.count + 1 END,
	window_reset_time = CASE WHEN rate_limit_counters.window_reset_time <= ? THEN excluded.window_reset_time ELSE rate_limit_counters.window_reset_time END,
	updated_at = excluded.updated_at
RETURNING count`

func (s *Store) IncrementRateLimit(ctx context.Context, key string, window time.Duration, now time.Time) (int64, time.Time, error) {
	if s == nil || s.db == nil {
		return 0, time.Time{}, nil
	}
	resetAt := now.Add(window)
	var count int64
	row := s.db.WithContext(ctx).Raw(incrementRateLimitSQL, key, resetAt, now, now, now).Row()
	if err := row.Scan(&count); err != nil {
		return 0, time.Time{}, err
	}
	if count == 1 {
		return count, resetAt, nil
	}
	var item models.RateLimitCounter
	if err := s.db.WithContext(ctx).Where(`"key" = ?`, key).First(&item).Error; err != nil {
		return count, resetAt, nil
	}
	return count, item.WindowResetTime, nil
}

func (s *Store) DeleteExpiredRateLimits(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("window_reset_time < ?", before).Delete(&models.RateLimitCounter{})
	return res.RowsAffected, res.Error
}
