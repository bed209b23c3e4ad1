package models

import "time"

// FinancialTotals holds the six running aggregates. It doubles as a delta
// when applied to stored totals.
type FinancialTotals struct {
	TotalDeposit  int64 `json:"total_deposit"`
	TotalWithdraw int64 `json:"total_withdraw"`
	TotalBet      int64 `json:"total_bet"`
	TotalWin      int64 `json:"total_win"`
	TotalLoss     int64 `json:"total_loss"`
	TotalProfit   int64 `json:"total_profit"`
}

func (t FinancialTotals) IsZero() bool {
	return t == FinancialTotals{}
}

type PlatformFinancialData struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	UserID   string `gorm:"type:varchar(64);not null;uniqueIndex:ux_platform_financial_user_client,priority:1"`
	ClientID string `gorm:"type:varchar(120);not null;uniqueIndex:ux_platform_financial_user_client,priority:2"`

	TotalDeposit  int64 `gorm:"not null;default:0"`
	TotalWithdraw int64 `gorm:"not null;default:0"`
	TotalBet      int64 `gorm:"not null;default:0"`
	TotalWin      int64 `gorm:"not null;default:0"`
	TotalLoss     int64 `gorm:"not null;default:0"`
	TotalProfit   int64 `gorm:"not null;default:0"`

	SyncCount  int64 `gorm:"not null;default:0"`
	LastSyncAt *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (PlatformFinancialData) TableName() string {
	return "platform_financial_data"
}

func (p PlatformFinancialData) Totals() FinancialTotals {
	return FinancialTotals{
		TotalDeposit:  p.TotalDeposit,
		TotalWithdraw: p.TotalWithdraw,
		TotalBet:      p.TotalBet,
		TotalWin:      p.TotalWin,
		TotalLoss:     p.TotalLoss,
		TotalProfit:   p.TotalProfit,
	}
}
