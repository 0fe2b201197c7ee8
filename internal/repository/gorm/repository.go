package gormrepository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"predictmax/internal/models"
	"predictmax/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.Repository = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- market snapshots --------------------------------------------------------

func (s *Store) UpsertMarketSnapshots(ctx context.Context, items []models.MarketSnapshot) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"platform",
			"question",
			"category",
			"event",
			"series",
			"status",
			"close_time",
			"yes_bid",
			"yes_ask",
			"midpoint",
			"spread",
			"volume_24h",
			"total_volume",
			"open_interest",
			"liquidity_score",
			"tags",
			"data_warnings",
			"payload",
			"last_seen_at",
			"updated_at",
		}),
	}).CreateInBatches(items, 200).Error
}

func (s *Store) GetMarketSnapshot(ctx context.Context, id string) (*models.MarketSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.MarketSnapshot
	err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListMarketSnapshots(ctx context.Context, params repository.ListSnapshotsParams) ([]models.MarketSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applySnapshotFilters(s.db.WithContext(ctx).Model(&models.MarketSnapshot{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "volume_24h")
	var items []models.MarketSnapshot
	if err := query.Limit(normalizeLimit(params.Limit, 500)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountMarketSnapshots(ctx context.Context, params repository.ListSnapshotsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applySnapshotFilters(s.db.WithContext(ctx).Model(&models.MarketSnapshot{}), params).Count(&total).Error
	return total, err
}

func applySnapshotFilters(query *gorm.DB, params repository.ListSnapshotsParams) *gorm.DB {
	if v := trimmed(params.Platform); v != "" {
		query = query.Where("platform = ?", v)
	}
	if v := trimmed(params.Category); v != "" {
		query = query.Where("category = ?", v)
	}
	if v := trimmed(params.Status); v != "" {
		query = query.Where("status = ?", v)
	}
	if params.SeenFrom != nil && !params.SeenFrom.IsZero() {
		query = query.Where("last_seen_at >= ?", *params.SeenFrom)
	}
	return query
}

// --- scans and recommendations -----------------------------------------------

func (s *Store) SaveScanTx(ctx context.Context, tx *gorm.DB, run *models.ScanRun, recs []models.Recommendation) error {
	if run == nil {
		return nil
	}
	if tx == nil {
		if s == nil || s.db == nil {
			return nil
		}
		tx = s.db
	}
	tx = tx.WithContext(ctx)
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if err := tx.Create(run).Error; err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}
	for i := range recs {
		id := run.ID
		recs[i].ScanID = &id
	}
	return tx.CreateInBatches(recs, 50).Error
}

func (s *Store) GetScanRun(ctx context.Context, id uuid.UUID) (*models.ScanRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ScanRun
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListScanRuns(ctx context.Context, limit int) ([]models.ScanRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ScanRun
	if err := s.db.WithContext(ctx).Order("started_at desc").Limit(normalizeLimit(limit, 50)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertRecommendation(ctx context.Context, item *models.Recommendation) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListRecommendations(ctx context.Context, params repository.ListRecommendationsParams) ([]models.Recommendation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Recommendation{})
	if params.ScanID != nil {
		query = query.Where("scan_id = ?", *params.ScanID)
	}
	if v := trimmed(params.MarketID); v != "" {
		query = query.Where("market_id = ?", v)
	}
	if v := strings.ToUpper(trimmed(params.Action)); v != "" {
		query = query.Where("action = ?", v)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	if params.ScanID != nil {
		query = query.Order("rank asc")
	}
	var items []models.Recommendation
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers -----------------------------------------------------------------

var orderColumns = map[string]struct{}{
	"volume_24h": {}, "total_volume": {}, "close_time": {}, "last_seen_at": {}, "midpoint": {},
	"created_at": {}, "expected_value": {}, "confidence": {}, "rank": {},
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if _, ok := orderColumns[column]; !ok {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
