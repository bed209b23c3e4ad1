package gormrepository

import (
	"context"
	"strings"
	"time"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
)

func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Profile
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&item).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) FindProfileByContact(ctx context.Context, email, phone string) (*models.Profile, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)
	query := s.db.WithContext(ctx).Model(&models.Profile{})
	switch {
	case email != "" && phone != "":
		query = query.Where("email = ? OR phone = ?", email, phone)
	case email != "":
		query = query.Where("email = ?", email)
	case phone != "":
		query = query.Where("phone = ?", phone)
	default:
		return nil, nil
	}
	var item models.Profile
	err := query.Order("created_at asc").First(&item).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateProfile(ctx context.Context, item *models.Profile) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID, platform string, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", userID).
		Updates(map[string]any{"last_login_platform": platform, "last_login_at": at}).Error
}

func (s *Store) SetCustodialWallet(ctx context.Context, userID, address string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", userID).
		Update("custodial_wallet", address).Error
}

func (s *Store) GetSoulNFT(ctx context.Context, userID string) (*models.SoulNFT, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SoulNFT
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&item).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SummarizeRewards(ctx context.Context, userID string) (*repository.RewardSummary, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	type row struct {
		Status string
		Cnt    int64
		Total  int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&models.Reward{}).
		Select("status, COUNT(*) AS cnt, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND status IN ?", userID, []string{models.RewardStatusPending, models.RewardStatusApproved}).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := &repository.RewardSummary{}
	for _, r := range rows {
		switch r.Status {
		case models.RewardStatusPending:
			out.PendingCount, out.PendingAmount = r.Cnt, r.Total
		case models.RewardStatusApproved:
			out.ApprovedCount, out.ApprovedAmount = r.Cnt, r.Total
		}
	}
	return out, nil
}
