package models

import (
	"time"

	"gorm.io/datatypes"
)

// FinancialTransaction rows are write-once. (client_id, transaction_id) is the
// idempotency key.
type FinancialTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	UserID        string `gorm:"type:varchar(64);not null;index:idx_fin_tx_user_client,priority:1"`
	ClientID      string `gorm:"type:varchar(120);not null;uniqueIndex:ux_fin_tx_client_tx,priority:1;index:idx_fin_tx_user_client,priority:2"`
	TransactionID string `gorm:"type:varchar(255);not null;uniqueIndex:ux_fin_tx_client_tx,priority:2"`

	Action   string         `gorm:"type:varchar(32);not null;index"`
	Amount   int64          `gorm:"not null"`
	Currency string         `gorm:"type:varchar(16);not null"`
	Metadata datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (FinancialTransaction) TableName() string {
	return "financial_transactions"
}
