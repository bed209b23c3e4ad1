package models

import (
	"time"

	"gorm.io/datatypes"
)

// PlatformUserData is the per-(user, client) JSON document written by state sync.
type PlatformUserData struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	UserID   string `gorm:"type:varchar(64);not null;uniqueIndex:ux_platform_user_data_user_client,priority:1"`
	ClientID string `gorm:"type:varchar(120);not null;uniqueIndex:ux_platform_user_data_user_client,priority:2"`

	Data datatypes.JSON `gorm:"type:jsonb;not null"`

	SyncCount       int64  `gorm:"not null;default:0"`
	LastSyncMode    string `gorm:"type:varchar(16)"`
	ClientTimestamp *time.Time
	SyncedAt        time.Time `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (PlatformUserData) TableName() string {
	return "platform_user_data"
}
