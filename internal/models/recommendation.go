package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Recommendation is one persisted trade recommendation. Rank 0 is the scan's
// best market; higher ranks are alternatives. Ad-hoc analyses have no ScanID.
type Recommendation struct {
	ID       uint64     `gorm:"primaryKey;autoIncrement"`
	ScanID   *uuid.UUID `gorm:"type:uuid;index"`
	Rank     int        `gorm:"not null;default:0"`
	MarketID string     `gorm:"type:text;not null;index"`
	Action   string     `gorm:"type:varchar(10);not null;index"`
	Side     *string    `gorm:"type:varchar(5)"`

	Confidence    float64         `gorm:"not null"`
	EdgePct       decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	FairValue     decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	MarketPrice   decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	ExpectedValue float64         `gorm:"not null"`

	RecommendedSize decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	MaxSize         decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	WaitReason      *string        `gorm:"type:text"`
	Reasoning       string         `gorm:"type:text"`
	ReasoningSource string         `gorm:"type:varchar(40)"`
	Payload         datatypes.JSON `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Recommendation) TableName() string {
	return "recommendations"
}
