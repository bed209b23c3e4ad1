package cronrunner

import (
	"context"

	"go.uber.org/zap"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/service"
)

// MaintenanceJob adapts the maintenance sweep to a cron job. Failures are
// logged; the next tick retries.
func MaintenanceJob(m *service.Maintenance, logger *zap.Logger) func(context.Context) {
	return func(ctx context.Context) {
		if _, err := m.Run(ctx); err != nil && logger != nil {
			logger.Warn("maintenance sweep failed", zap.Error(err))
		}
	}
}
