package cronrunner

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"predictmax/internal/config"
	"predictmax/internal/search"
	"predictmax/internal/service"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add schedules job; a run still in progress makes the next tick a no-op.
func (r *Runner) Add(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	var running atomic.Bool
	return r.cron.AddFunc(spec, func() {
		if !running.CompareAndSwap(false, true) {
			if r.logger != nil {
				r.logger.Debug("cron job still running; tick skipped", zap.String("job", name))
			}
			return
		}
		defer running.Store(false)
		job(r.baseCtx)
	})
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started", zap.Int("jobs", len(r.cron.Entries())))
	}
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}

// RegisterAdvisorJobs schedules catalog refresh and the periodic best-opportunity
// scan. Empty specs are skipped.
func (r *Runner) RegisterAdvisorJobs(cfg config.CronConfig, advisor *service.Advisor, bankroll decimal.Decimal) error {
	if spec := strings.TrimSpace(cfg.CatalogRefresh); spec != "" {
		_, err := r.Add("catalog_refresh", spec, func(ctx context.Context) {
			if _, err := advisor.Refresh(ctx); err != nil && r.logger != nil {
				r.logger.Warn("cron catalog refresh failed", zap.Error(err))
			}
		})
		if err != nil {
			return err
		}
	}
	if spec := strings.TrimSpace(cfg.Scan); spec != "" {
		_, err := r.Add("scan", spec, func(ctx context.Context) {
			report, err := advisor.FindBest(ctx, search.Filters{}, bankroll, "cron")
			if err != nil {
				if r.logger != nil {
					r.logger.Warn("cron scan failed", zap.Error(err))
				}
				return
			}
			if r.logger != nil {
				r.logger.Info("cron scan ok",
					zap.String("scan_id", report.ScanID.String()),
					zap.String("best_market", report.BestMarket.ID),
					zap.String("action", string(report.Recommendation.Action)),
				)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}
