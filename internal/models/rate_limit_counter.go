package models

import "time"

type RateLimitCounter struct {
	Key             string    `gorm:"type:varchar(255);primaryKey"`
	Count           int64     `gorm:"not null;default:0"`
	WindowResetTime time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time
}

func (RateLimitCounter) TableName() string {
	return "rate_limit_counters"
}
