package gormrepository

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
)

func (s *Store) UpsertCredential(ctx context.Context, item *models.Credential) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token",
			"refresh_token",
			"scope",
			"access_token_expires_at",
			"refresh_token_expires_at",
			"is_revoked",
			"revoked_at",
			"last_used_at",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetCredentialByRefreshToken(ctx context.Context, refreshToken, clientID string) (*models.Credential, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Credential
	err := s.db.WithContext(ctx).
		Where("refresh_token = ? AND client_id = ? AND is_revoked = ?", refreshToken, clientID, false).
		First(&item).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetCredentialByAccessToken(ctx context.Context, accessToken string) (*models.Credential, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Credential
	err := s.db.WithContext(ctx).
		Where("access_token = ? AND is_revoked = ?", accessToken, false).
		First(&item).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) RotateCredential(ctx context.Context, id uint64, oldRefreshToken string, next *models.Credential) (bool, error) {
	if s == nil || s.db == nil || next == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Credential{}).
		Where("id = ? AND refresh_token = ? AND is_revoked = ?", id, oldRefreshToken, false).
		Updates(map[string]any{
			"access_token":             next.AccessToken,
			"refresh_token":            next.RefreshToken,
			"scope":                    next.Scope,
			"access_token_expires_at":  next.AccessTokenExpiresAt,
			"refresh_token_expires_at": next.RefreshTokenExpiresAt,
			"last_used_at":             next.LastUsedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) RevokeCredential(ctx context.Context, id uint64, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Credential{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_revoked": true, "revoked_at": at}).Error
}

func (s *Store) TouchCredential(ctx context.Context, id uint64, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Credential{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error
}

func (s *Store) TouchCredentialByUserClient(ctx context.Context, userID, clientID string, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Credential{}).
		Where("user_id = ? AND client_id = ? AND is_revoked = ?", userID, clientID, false).
		UpdateColumn("last_used_at", at).Error
}

func (s *Store) DeleteDeadCredentials(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("(is_revoked = ? AND revoked_at < ?) OR refresh_token_expires_at < ?", true, before, before).
		Delete(&models.Credential{})
	return res.RowsAffected, res.Error
}
