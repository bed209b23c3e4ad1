package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuthorizationCode struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Code        string `gorm:"type:varchar(255);not null;uniqueIndex"`
	UserID      string `gorm:"type:varchar(64);not null;index"`
	ClientID    string `gorm:"type:varchar(120);not null;index"`
	RedirectURI string `gorm:"type:text;not null"`

	Scope datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	CodeChallenge       string `gorm:"type:varchar(255)"`
	CodeChallengeMethod string `gorm:"type:varchar(16)"`

	ExpiresAt time.Time `gorm:"not null;index"`
	IsUsed    bool      `gorm:"not null;default:false"`
	UsedAt    *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (AuthorizationCode) TableName() string {
	return "oauth_authorization_codes"
}
