package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MarketSnapshot is the latest normalized view of one market.
type MarketSnapshot struct {
	ID             string           `gorm:"primaryKey;type:text"`
	Platform       string           `gorm:"type:varchar(20);not null;index"`
	Question       string           `gorm:"type:text;not null"`
	Category       string           `gorm:"type:varchar(40);not null;index"`
	Event          string           `gorm:"type:text"`
	Series         *string          `gorm:"type:text"`
	Status         string           `gorm:"type:varchar(20);not null;index"`
	CloseTime      *time.Time       `gorm:"type:timestamptz;index"`
	YesBid         decimal.Decimal  `gorm:"type:numeric(20,10);not null"`
	YesAsk         decimal.Decimal  `gorm:"type:numeric(20,10);not null"`
	Midpoint       decimal.Decimal  `gorm:"type:numeric(20,10);not null"`
	Spread         decimal.Decimal  `gorm:"type:numeric(20,10);not null"`
	Volume24h      decimal.Decimal  `gorm:"column:volume_24h;type:numeric(30,10);not null"`
	TotalVolume    decimal.Decimal  `gorm:"type:numeric(30,10);not null"`
	OpenInterest   *decimal.Decimal `gorm:"type:numeric(30,10)"`
	LiquidityScore string           `gorm:"type:varchar(10);not null"`
	Tags           datatypes.JSON   `gorm:"type:jsonb"`
	DataWarnings   datatypes.JSON   `gorm:"type:jsonb"`
	// Payload is the full normalized market; rows are rebuilt from it.
	Payload    datatypes.JSON `gorm:"type:jsonb;not null"`
	LastSeenAt time.Time      `gorm:"type:timestamptz;not null;index"`
	UpdatedAt  time.Time      `gorm:"type:timestamptz;autoUpdateTime"`
}

func (MarketSnapshot) TableName() string {
	return "market_snapshots"
}
