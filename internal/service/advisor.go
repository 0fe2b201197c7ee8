package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"predictmax/internal/apperr"
	"predictmax/internal/ensemble"
	"predictmax/internal/market"
	"predictmax/internal/models"
	"predictmax/internal/normalizer"
	"predictmax/internal/recommend"
	"predictmax/internal/repository"
	"predictmax/internal/risk"
	"predictmax/internal/scanner"
	"predictmax/internal/search"
)

// MarketCollector returns the current normalized markets from every source.
type MarketCollector interface {
	Collect(ctx context.Context) ([]market.UnifiedMarket, error)
}

// OddsAttacher enriches a market with bookmaker-implied odds when it can.
type OddsAttacher interface {
	Attach(ctx context.Context, m market.UnifiedMarket) market.UnifiedMarket
}

// Advisor serves discovery, analysis and scans over a refreshed catalog.
// Repo is optional; without it nothing is persisted.
type Advisor struct {
	Collector MarketCollector
	Odds      OddsAttacher
	Aliases   search.AliasSource
	Ranker    *search.Ranker
	Ensemble  *ensemble.Ensemble
	Risk      *risk.Assessor
	Engine    *recommend.Engine
	Scanner   *scanner.Scanner
	Repo      repository.Repository
	Catalog   *Catalog
	Logger    *zap.Logger
	Now       func() time.Time

	catalogOnce sync.Once
}

type RefreshStats struct {
	Markets    int       `json:"markets"`
	Enriched   int       `json:"enriched"`
	Persisted  int       `json:"persisted"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Refresh collects, enriches and swaps in a new catalog, then upserts the
// snapshots. A storage failure is logged and does not fail the refresh.
func (a *Advisor) Refresh(ctx context.Context) (RefreshStats, error) {
	stats := RefreshStats{StartedAt: a.now()}
	if a.Collector == nil {
		return stats, apperr.Configuration("refresh", nil)
	}
	markets, err := a.Collector.Collect(ctx)
	if err != nil {
		return stats, err
	}
	if a.Odds != nil {
		for i, m := range markets {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			markets[i] = a.Odds.Attach(ctx, m)
			if _, ok := markets[i].ImpliedOdds(); ok {
				stats.Enriched++
			}
		}
	}
	a.catalog().Replace(markets, a.now())
	stats.Markets = len(markets)
	stats.Persisted = a.persistSnapshots(ctx, markets)
	stats.FinishedAt = a.now()

	if a.Logger != nil {
		a.Logger.Info("catalog refreshed",
			zap.Int("markets", stats.Markets),
			zap.Int("enriched", stats.Enriched),
			zap.Int("persisted", stats.Persisted),
			zap.Duration("took", stats.FinishedAt.Sub(stats.StartedAt)),
		)
	}
	return stats, nil
}

func (a *Advisor) persistSnapshots(ctx context.Context, markets []market.UnifiedMarket) int {
	if a.Repo == nil || len(markets) == 0 {
		return 0
	}
	seen := a.now()
	items := make([]models.MarketSnapshot, 0, len(markets))
	for _, m := range markets {
		item, err := snapshotFromMarket(m)
		if err != nil {
			a.warn("snapshot encode failed", m.ID, err)
			continue
		}
		item.LastSeenAt = seen
		items = append(items, item)
	}
	if err := a.Repo.UpsertMarketSnapshots(ctx, items); err != nil {
		a.warn("snapshot upsert failed", "", err)
		return 0
	}
	return len(items)
}

// Warm loads persisted open markets into an empty catalog so the service can
// answer before the first refresh completes.
func (a *Advisor) Warm(ctx context.Context) (int, error) {
	if a.Repo == nil {
		return 0, nil
	}
	status := string(market.StatusOpen)
	items, err := a.Repo.ListMarketSnapshots(ctx, repository.ListSnapshotsParams{Status: &status, Limit: 500})
	if err != nil {
		return 0, err
	}
	markets := make([]market.UnifiedMarket, 0, len(items))
	for _, item := range items {
		m, err := marketFromSnapshot(item)
		if err != nil {
			a.warn("snapshot decode failed", item.ID, err)
			continue
		}
		markets = append(markets, m)
	}
	return a.catalog().Merge(markets), nil
}

// SearchRequest is a discovery request. Entities take precedence over the
// free-text query in Filters.
type SearchRequest struct {
	Filters    search.Filters
	Entities   []string
	HeadToHead bool
}

func (a *Advisor) Search(req SearchRequest) []market.UnifiedMarket {
	var q *search.ParsedQuery
	if names := nonEmpty(req.Entities); len(names) > 0 {
		pq := search.ParsedQuery{HeadToHead: req.HeadToHead && len(names) > 1, Category: req.Filters.Category}
		for _, name := range names {
			pq.Entities = append(pq.Entities, search.NewEntity(name, a.Aliases))
		}
		pq.Terms = search.TermsQuery(req.Filters.SearchQuery).Terms
		q = &pq
	}
	return a.ranker().Search(a.catalog().All(), req.Filters, q)
}

func (a *Advisor) Market(id string) (market.UnifiedMarket, error) {
	m, ok := a.catalog().Get(strings.TrimSpace(id))
	if !ok {
		return market.UnifiedMarket{}, apperr.Wrap(apperr.ErrNotFound, "market", nil)
	}
	return m, nil
}

// MarketAnalysis is the full per-market pipeline output.
type MarketAnalysis struct {
	Market         market.UnifiedMarket          `json:"market"`
	Analysis       ensemble.Analysis             `json:"analysis"`
	Assessment     risk.Assessment               `json:"assessment"`
	Recommendation recommend.TradeRecommendation `json:"recommendation"`
}

// Analyze runs ensemble, risk and recommendation for one catalog market and
// records the recommendation.
func (a *Advisor) Analyze(ctx context.Context, id string, bankroll decimal.Decimal) (MarketAnalysis, error) {
	m, err := a.Market(id)
	if err != nil {
		return MarketAnalysis{}, err
	}
	out := MarketAnalysis{Market: m}
	out.Analysis = a.Ensemble.Analyze(ctx, m)
	out.Assessment = a.Risk.Assess(m)
	out.Recommendation = a.Engine.Recommend(ctx, m, out.Analysis, out.Assessment, bankroll)

	if a.Repo != nil {
		row, err := recommendationRow(0, out.Recommendation)
		if err == nil {
			err = a.Repo.InsertRecommendation(ctx, &row)
		}
		if err != nil {
			a.warn("recommendation insert failed", m.ID, err)
		}
	}
	return out, nil
}

// ScanReport is a scan result plus its persisted identity.
type ScanReport struct {
	ScanID uuid.UUID `json:"scan_id"`
	scanner.Result
}

// FindBest scans the open catalog markets that pass filters.
func (a *Advisor) FindBest(ctx context.Context, filters search.Filters, bankroll decimal.Decimal, trigger string) (ScanReport, error) {
	started := a.now()
	candidates := make([]market.UnifiedMarket, 0)
	for _, m := range search.ApplyFilters(a.catalog().All(), filters) {
		if m.Market.Status == market.StatusOpen {
			candidates = append(candidates, m)
		}
	}
	res, err := a.Scanner.FindBest(ctx, candidates, bankroll)
	if err != nil {
		return ScanReport{}, err
	}
	report := ScanReport{ScanID: uuid.New(), Result: res}
	a.persistScan(ctx, report, bankroll, trigger, started)
	return report, nil
}

func (a *Advisor) persistScan(ctx context.Context, report ScanReport, bankroll decimal.Decimal, trigger string, started time.Time) {
	if a.Repo == nil {
		return
	}
	if bankroll.LessThanOrEqual(decimal.Zero) {
		bankroll = report.Recommendation.Sizing.Bankroll
	}
	run := &models.ScanRun{
		ID:            report.ScanID,
		Trigger:       strings.TrimSpace(trigger),
		Scanned:       report.Scanned,
		QuickPassed:   report.QuickPassed,
		DeepEvaluated: report.DeepEvaluated,
		Actionable:    report.Actionable,
		BestMarketID:  report.BestMarket.ID,
		Bankroll:      bankroll,
		StartedAt:     started,
		FinishedAt:    a.now(),
	}
	if report.Fallback != scanner.FallbackNone {
		fb := string(report.Fallback)
		run.Fallback = &fb
	}
	if run.Trigger == "" {
		run.Trigger = "api"
	}

	rows := make([]models.Recommendation, 0, 1+len(report.Alternatives))
	best, err := recommendationRow(0, report.Recommendation)
	if err != nil {
		a.warn("recommendation encode failed", report.BestMarket.ID, err)
		return
	}
	rows = append(rows, best)
	for i, alt := range report.Alternatives {
		row, err := alternativeRow(i+1, alt)
		if err != nil {
			a.warn("alternative encode failed", alt.Market.ID, err)
			continue
		}
		rows = append(rows, row)
	}

	err = a.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return a.Repo.SaveScanTx(ctx, tx, run, rows)
	})
	if err != nil {
		a.warn("scan persist failed", report.BestMarket.ID, err)
	}
}

type RecommendationQuery struct {
	ScanID   *uuid.UUID
	MarketID string
	Action   string
	Limit    int
	Offset   int
}

// Recommendations lists recorded recommendations, newest first. Without a
// repository the list is empty.
func (a *Advisor) Recommendations(ctx context.Context, q RecommendationQuery) ([]models.Recommendation, error) {
	if a.Repo == nil {
		return []models.Recommendation{}, nil
	}
	params := repository.ListRecommendationsParams{ScanID: q.ScanID, Limit: q.Limit, Offset: q.Offset}
	if v := strings.TrimSpace(q.MarketID); v != "" {
		params.MarketID = &v
	}
	if v := strings.TrimSpace(q.Action); v != "" {
		params.Action = &v
	}
	return a.Repo.ListRecommendations(ctx, params)
}

// ApplyTick patches a live quote into the catalog.
func (a *Advisor) ApplyTick(t normalizer.Tick) {
	if !a.catalog().ApplyTick(t) && a.Logger != nil {
		a.Logger.Debug("tick for unknown market", zap.String("market_id", t.MarketID))
	}
}

// StreamTickers lists the busiest open Kalshi markets for the live ticker feed.
func (a *Advisor) StreamTickers(limit int) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) {
		var out []string
		for _, m := range a.catalog().All() {
			if m.Platform != market.PlatformKalshi || m.Market.Status != market.StatusOpen {
				continue
			}
			out = append(out, m.ID)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return out, nil
	}
}

// Ready reports whether the catalog holds any market.
func (a *Advisor) Ready() bool {
	return a.catalog().Len() > 0
}

func (a *Advisor) catalog() *Catalog {
	a.catalogOnce.Do(func() {
		if a.Catalog == nil {
			a.Catalog = NewCatalog()
		}
	})
	return a.Catalog
}

func (a *Advisor) ranker() *search.Ranker {
	if a.Ranker == nil {
		return &search.Ranker{Now: a.Now, Logger: a.Logger}
	}
	return a.Ranker
}

func (a *Advisor) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

func (a *Advisor) warn(msg, marketID string, err error) {
	if a.Logger == nil {
		return
	}
	a.Logger.Warn(msg, zap.String("market_id", marketID), zap.Error(err))
}

func nonEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
