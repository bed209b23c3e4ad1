package gormrepository

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
)

func (s *Store) GetPlatformUserData(ctx context.Context, userID, clientID string) (*models.PlatformUserData, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PlatformUserData
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND client_id = ?", userID, clientID).
		First(&item).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SavePlatformUserData(ctx context.Context, item *models.PlatformUserData, expectedSyncCount int64) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	if expectedSyncCount == 0 {
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(item)
		if res.Error != nil {
			return false, res.Error
		}
		return res.RowsAffected == 1, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.PlatformUserData{}).
		Where("user_id = ? AND client_id = ? AND sync_count = ?", item.UserID, item.ClientID, expectedSyncCount).
		Updates(map[string]any{
			"data":             item.Data,
			"sync_count":       item.SyncCount,
			"last_sync_mode":   item.LastSyncMode,
			"client_timestamp": item.ClientTimestamp,
			"synced_at":        item.SyncedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
