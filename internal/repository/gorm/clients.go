package gormrepository

import (
	"context"
	"time"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
)

func (s *Store) GetActiveClient(ctx context.Context, clientID string) (*models.OAuthClient, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.OAuthClient
	err := s.db.WithContext(ctx).
		Where("client_id = ? AND is_active = ?", clientID, true).
		First(&item).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetUnusedAuthorizationCode(ctx context.Context, code, clientID string) (*models.AuthorizationCode, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.AuthorizationCode
	err := s.db.WithContext(ctx).
		Where("code = ? AND client_id = ? AND is_used = ?", code, clientID, false).
		First(&item).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ClaimAuthorizationCode(ctx context.Context, id uint64, at time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.AuthorizationCode{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]any{"is_used": true, "used_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) DeleteExpiredAuthorizationCodes(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("expires_at < ?", before).Delete(&models.AuthorizationCode{})
	return res.RowsAffected, res.Error
}
