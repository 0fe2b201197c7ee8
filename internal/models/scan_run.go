package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScanRun records one opportunity scan. Its recommendations share ScanID.
type ScanRun struct {
	ID            uuid.UUID       `gorm:"primaryKey;type:uuid"`
	Trigger       string          `gorm:"type:varchar(20);not null"`
	Scanned       int             `gorm:"not null"`
	QuickPassed   int             `gorm:"not null"`
	DeepEvaluated int             `gorm:"not null"`
	Actionable    int             `gorm:"not null"`
	Fallback      *string         `gorm:"type:varchar(40)"`
	BestMarketID  string          `gorm:"type:text;index"`
	Bankroll      decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	StartedAt     time.Time       `gorm:"type:timestamptz;not null;index"`
	FinishedAt    time.Time       `gorm:"type:timestamptz;not null"`
}

func (ScanRun) TableName() string {
	return "scan_runs"
}
