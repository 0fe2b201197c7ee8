package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"predictmax/internal/models"
)

// Repository persists market snapshots and the scans and recommendations
// computed from them.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	UpsertMarketSnapshots(ctx context.Context, items []models.MarketSnapshot) error
	GetMarketSnapshot(ctx context.Context, id string) (*models.MarketSnapshot, error)
	ListMarketSnapshots(ctx context.Context, params ListSnapshotsParams) ([]models.MarketSnapshot, error)
	CountMarketSnapshots(ctx context.Context, params ListSnapshotsParams) (int64, error)

	// SaveScanTx stores a scan and its recommendations in one transaction.
	SaveScanTx(ctx context.Context, tx *gorm.DB, run *models.ScanRun, recs []models.Recommendation) error
	GetScanRun(ctx context.Context, id uuid.UUID) (*models.ScanRun, error)
	ListScanRuns(ctx context.Context, limit int) ([]models.ScanRun, error)

	InsertRecommendation(ctx context.Context, item *models.Recommendation) error
	ListRecommendations(ctx context.Context, params ListRecommendationsParams) ([]models.Recommendation, error)
}

type ListSnapshotsParams struct {
	Limit    int
	Offset   int
	Platform *string
	Category *string
	Status   *string
	SeenFrom *time.Time
	OrderBy  string
	Asc      *bool
}

type ListRecommendationsParams struct {
	Limit    int
	Offset   int
	ScanID   *uuid.UUID
	MarketID *string
	Action   *string
	Since    *time.Time
	OrderBy  string
	Asc      *bool
}
