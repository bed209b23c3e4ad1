package db

import (
	"gorm.io/gorm"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	return Migrate(db.Gorm)
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.OAuthClient{},
		&models.AuthorizationCode{},
		&models.Credential{},
		&models.Profile{},
		&models.SoulNFT{},
		&models.Reward{},
		&models.PlatformUserData{},
		&models.PlatformFinancialData{},
		&models.FinancialTransaction{},
		&models.RateLimitCounter{},
	)
}
