package models

import "time"

// OAuthClient is a platform allowed to request credentials. Rows are managed
// by an administrative process; this service only reads them.
type OAuthClient struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	ClientID     string `gorm:"type:varchar(120);not null;uniqueIndex"`
	ClientSecret string `gorm:"type:text"`
	PlatformName string `gorm:"type:varchar(120);not null"`
	IsActive     bool   `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (OAuthClient) TableName() string {
	return "oauth_clients"
}
