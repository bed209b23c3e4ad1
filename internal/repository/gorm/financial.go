package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
)

var applyDeltaSQL = buildApplyDeltaSQL()

// buildApplyDeltaSQL yields an upsert that adds each delta to its column and
// floors the result at zero. It runs unchanged on postgres and sqlite.
func buildApplyDeltaSQL() string {
	cols := repository.FinancialColumns
	var b strings.Builder
	b.WriteString("INSERT INTO platform_financial_data (user_id, client_id, ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(", sync_count, last_sync_at, created_at, updated_at) VALUES (?, ?")
	for range cols {
		b.WriteString(", ?")
	}
	b.WriteString(", 1, ?, ?, ?) ON CONFLICT (user_id, client_id) DO UPDATE SET ")
	for _, col := range cols {
		fmt.Fprintf(&b, "%[1]s = CASE WHEN platform_financial_data.%[1]s + ? < 0 THEN 0 ELSE platform_financial_data.%[1]s + ? END, ", col)
	}
	b.WriteString("sync_count = platform_financial_data.sync_count + 1, last_sync_at = excluded.last_sync_at, updated_at = excluded.updated_at")
	return b.String()
}

func deltaValues(d models.FinancialTotals) []int64 {
	return []int64{d.TotalDeposit, d.TotalWithdraw, d.TotalBet, d.TotalWin, d.TotalLoss, d.TotalProfit}
}

func applyDelta(tx *gorm.DB, userID, clientID string, delta models.FinancialTotals, at time.Time) (*models.PlatformFinancialData, error) {
	values := deltaValues(delta)
	args := make([]any, 0, 2+len(values)*3+3)
	args = append(args, userID, clientID)
	for _, v := range values {
		if v < 0 {
			v = 0
		}
		args = append(args, v)
	}
	args = append(args, at, at, at)
	for _, v := range values {
		args = append(args, v, v)
	}
	if err := tx.Exec(applyDeltaSQL, args...).Error; err != nil {
		return nil, err
	}
	return loadFinancial(tx, userID, clientID)
}

func loadFinancial(tx *gorm.DB, userID, clientID string) (*models.PlatformFinancialData, error) {
	var item models.PlatformFinancialData
	err := tx.Where("user_id = ? AND client_id = ?", userID, clientID).First(&item).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetPlatformFinancialData(ctx context.Context, userID, clientID string) (*models.PlatformFinancialData, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return loadFinancial(s.db.WithContext(ctx), userID, clientID)
}

func (s *Store) ApplyFinancialDelta(ctx context.Context, userID, clientID string, delta models.FinancialTotals, at time.Time) (*models.PlatformFinancialData, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var out *models.PlatformFinancialData
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = applyDelta(tx, userID, clientID, delta, at)
		return err
	})
	return out, err
}

func (s *Store) SetFinancialTotals(ctx context.Context, userID, clientID string, values map[string]int64, at time.Time) (*models.PlatformFinancialData, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	row := models.PlatformFinancialData{
		UserID:     userID,
		ClientID:   clientID,
		SyncCount:  1,
		LastSyncAt: &at,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	assignments := map[string]any{
		"sync_count":   gorm.Expr("platform_financial_data.sync_count + 1"),
		"last_sync_at": at,
		"updated_at":   at,
	}
	for col, v := range values {
		if v < 0 {
			v = 0
		}
		switch col {
		case "total_deposit":
			row.TotalDeposit = v
		case "total_withdraw":
			row.TotalWithdraw = v
		case "total_bet":
			row.TotalBet = v
		case "total_win":
			row.TotalWin = v
		case "total_loss":
			row.TotalLoss = v
		case "total_profit":
			row.TotalProfit = v
		default:
			return nil, fmt.Errorf("unknown financial column %q", col)
		}
		assignments[col] = v
	}
	var out *models.PlatformFinancialData
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "client_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		out, err = loadFinancial(tx, userID, clientID)
		return err
	})
	return out, err
}

func (s *Store) GetFinancialTransaction(ctx context.Context, clientID, transactionID string) (*models.FinancialTransaction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.FinancialTransaction
	err := s.db.WithContext(ctx).
		Where("client_id = ? AND transaction_id = ?", clientID, transactionID).
		First(&item).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) HasFinancialTransactions(ctx context.Context, userID, clientID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.FinancialTransaction{}).
		Where("user_id = ? AND client_id = ?", userID, clientID).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) RecordFinancialTransaction(ctx context.Context, item *models.FinancialTransaction, delta models.FinancialTotals) (*models.PlatformFinancialData, error) {
	if s == nil || s.db == nil || item == nil {
		return nil, nil
	}
	var out *models.PlatformFinancialData
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			if isUniqueViolation(err) {
				return repository.ErrDuplicateTransaction
			}
			return err
		}
		var err error
		out, err = applyDelta(tx, item.UserID, item.ClientID, delta, item.CreatedAt)
		return err
	})
	if errors.Is(err, repository.ErrDuplicateTransaction) {
		return nil, repository.ErrDuplicateTransaction
	}
	return out, err
}
