package ensemble

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"predictmax/internal/apperr"
	"predictmax/internal/market"
)

// ModelProvider supplies one extra estimator for a market. Returning
// (nil, nil) means the provider has nothing to say about this market.
type ModelProvider interface {
	Name() string
	Estimate(ctx context.Context, m market.UnifiedMarket) (*Model, error)
}

// Ensemble fans out to its providers and evaluates whatever came back.
// Failed or empty providers are dropped; the consensus model is always present.
type Ensemble struct {
	Providers []ModelProvider
	Logger    *zap.Logger
}

func (e *Ensemble) Analyze(ctx context.Context, m market.UnifiedMarket) Analysis {
	return Analyze(m, e.Estimates(ctx, m))
}

// Estimates collects provider models in provider order.
func (e *Ensemble) Estimates(ctx context.Context, m market.UnifiedMarket) []Model {
	if e == nil || len(e.Providers) == 0 {
		return nil
	}
	results := make([]*Model, len(e.Providers))
	// Provider errors are absorbed per provider; the group only joins.
	var g errgroup.Group
	for i, p := range e.Providers {
		if p == nil {
			continue
		}
		g.Go(func() error {
			model, err := safeEstimate(ctx, p, m)
			if err != nil {
				e.logSkip(p.Name(), m.ID, err)
				return nil
			}
			results[i] = model
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Model, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func safeEstimate(ctx context.Context, p ModelProvider, m market.UnifiedMarket) (model *Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			model = nil
			err = apperr.Enrichment(p.Name(), fmt.Errorf("panic: %v", r))
		}
	}()
	model, err = p.Estimate(ctx, m)
	if err != nil && !errors.Is(err, apperr.ErrEnrichmentUnavailable) {
		err = apperr.Enrichment(p.Name(), err)
	}
	return model, err
}

func (e *Ensemble) logSkip(provider, marketID string, err error) {
	if e.Logger == nil {
		return
	}
	e.Logger.Debug("ensemble: provider skipped",
		zap.String("provider", provider),
		zap.String("market_id", marketID),
		zap.Error(err),
	)
}
