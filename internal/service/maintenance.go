package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
)

// Maintenance purges rows that can no longer affect any request.
type Maintenance struct {
	Repo            repository.Repository
	Logger          *zap.Logger
	CodeGrace       time.Duration
	CounterGrace    time.Duration
	CredentialGrace time.Duration
	Now             func() time.Time
}

type MaintenanceResult struct {
	Codes       int64
	Counters    int64
	Credentials int64
}

func (m *Maintenance) Run(ctx context.Context) (MaintenanceResult, error) {
	now := clock(m.Now)
	var out MaintenanceResult
	var errs []error

	n, err := m.Repo.DeleteExpiredAuthorizationCodes(ctx, now.Add(-m.CodeGrace))
	out.Codes = n
	errs = append(errs, err)

	n, err = m.Repo.DeleteExpiredRateLimits(ctx, now.Add(-m.CounterGrace))
	out.Counters = n
	errs = append(errs, err)

	n, err = m.Repo.DeleteDeadCredentials(ctx, now.Add(-m.CredentialGrace))
	out.Credentials = n
	errs = append(errs, err)

	if m.Logger != nil {
		m.Logger.Info("maintenance finished",
			zap.Int64("codes", out.Codes),
			zap.Int64("counters", out.Counters),
			zap.Int64("credentials", out.Credentials),
		)
	}
	return out, errors.Join(errs...)
}
