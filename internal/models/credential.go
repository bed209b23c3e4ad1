package models

import (
	"time"

	"gorm.io/datatypes"
)

// Credential is the live access/refresh pair for one (user, client).
type Credential struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	UserID   string `gorm:"type:varchar(64);not null;uniqueIndex:ux_credentials_user_client,priority:1"`
	ClientID string `gorm:"type:varchar(120);not null;uniqueIndex:ux_credentials_user_client,priority:2"`

	AccessToken  string `gorm:"type:text;not null;index"`
	RefreshToken string `gorm:"type:varchar(128);not null;uniqueIndex"`

	Scope datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	AccessTokenExpiresAt  time.Time `gorm:"not null"`
	RefreshTokenExpiresAt time.Time `gorm:"not null;index"`
	IsRevoked             bool      `gorm:"not null;default:false"`
	RevokedAt             *time.Time
	LastUsedAt            *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Credential) TableName() string {
	return "cross_platform_tokens"
}
