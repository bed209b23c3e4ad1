package models

import "time"

const (
	RewardStatusPending  = "pending"
	RewardStatusApproved = "approved"
)

type Reward struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	UserID string `gorm:"type:varchar(64);not null;index"`
	Amount int64  `gorm:"not null;default:0"`
	Status string `gorm:"type:varchar(32);not null;index"`
	Source string `gorm:"type:varchar(120)"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Reward) TableName() string {
	return "rewards"
}
