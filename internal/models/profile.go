package models

import "time"

type Profile struct {
	ID    string `gorm:"type:varchar(64);primaryKey"`
	FunID string `gorm:"type:varchar(64);not null;uniqueIndex"`

	Username    string  `gorm:"type:varchar(120);not null;index"`
	Email       *string `gorm:"type:varchar(255);uniqueIndex"`
	Phone       *string `gorm:"type:varchar(32);uniqueIndex"`
	DisplayName string  `gorm:"type:varchar(255)"`
	AvatarURL   string  `gorm:"type:text"`
	Bio         string  `gorm:"type:text"`

	WalletAddress   string `gorm:"type:varchar(120)"`
	CustodialWallet string `gorm:"type:varchar(120)"`

	IsVerified        bool   `gorm:"not null;default:false"`
	RegisteredFrom    string `gorm:"type:varchar(120)"`
	LastLoginPlatform string `gorm:"type:varchar(120)"`
	LastLoginAt       *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}
