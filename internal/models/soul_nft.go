package models

import "time"

// SoulNFT is the identity badge record exposed by the soul scope.
type SoulNFT struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	UserID           string `gorm:"type:varchar(64);not null;uniqueIndex"`
	TokenID          string `gorm:"type:varchar(120)"`
	SoulElement      string `gorm:"type:varchar(64)"`
	Level            int    `gorm:"not null;default:1"`
	ExperiencePoints int64  `gorm:"not null;default:0"`
	MintedAt         *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (SoulNFT) TableName() string {
	return "soul_nfts"
}
