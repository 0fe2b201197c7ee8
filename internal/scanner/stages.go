package scanner

import (
	"context"
	"fmt"
	"math"

	"predictmax/internal/config"
	"predictmax/internal/ensemble"
	"predictmax/internal/market"
	"predictmax/internal/recommend"
	"predictmax/internal/risk"
)

// QuickVerdict is the cheap first-pass call on one market.
type QuickVerdict struct {
	Action market.Action `json:"action"`
	Side   market.Side   `json:"side,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

func (v QuickVerdict) Actionable() bool { return v.Action != market.ActionWait }

// QuickScorer screens markets without any I/O.
type QuickScorer interface {
	Quick(m market.UnifiedMarket) QuickVerdict
}

// Evaluation is the exact analysis of one market.
type Evaluation struct {
	Market        market.UnifiedMarket `json:"market"`
	Analysis      ensemble.Analysis    `json:"analysis"`
	Assessment    risk.Assessment      `json:"assessment"`
	Decision      recommend.Decision   `json:"decision"`
	ExpectedValue float64              `json:"expected_value"`
}

// DeepScorer runs the expensive analysis for one market.
type DeepScorer interface {
	Deep(ctx context.Context, m market.UnifiedMarket) (Evaluation, error)
}

// HeuristicQuickScorer passes liquid, non-extreme markets whose external odds
// disagree with the price.
type HeuristicQuickScorer struct {
	MinVolume24h float64
	MaxSpread    float64
	MinMidpoint  float64
	MaxMidpoint  float64
	MinOddsGap   float64
}

func DefaultQuickScorer() HeuristicQuickScorer {
	return HeuristicQuickScorer{MinVolume24h: 100, MaxSpread: 0.10, MinMidpoint: 0.05, MaxMidpoint: 0.95, MinOddsGap: 0.05}
}

func QuickScorerFromConfig(cfg config.ScannerConfig) HeuristicQuickScorer {
	q := DefaultQuickScorer()
	if cfg.MinVolume24h > 0 {
		q.MinVolume24h = cfg.MinVolume24h
	}
	if cfg.MaxSpread > 0 {
		q.MaxSpread = cfg.MaxSpread
	}
	if cfg.MinMidpoint > 0 {
		q.MinMidpoint = cfg.MinMidpoint
	}
	if cfg.MaxMidpoint > 0 {
		q.MaxMidpoint = cfg.MaxMidpoint
	}
	if cfg.MinOddsGap > 0 {
		q.MinOddsGap = cfg.MinOddsGap
	}
	return q
}

func (h HeuristicQuickScorer) Quick(m market.UnifiedMarket) QuickVerdict {
	wait := func(format string, args ...any) QuickVerdict {
		return QuickVerdict{Action: market.ActionWait, Reason: fmt.Sprintf(format, args...)}
	}
	mid := m.Pricing.Midpoint
	switch {
	case !(m.Liquidity.Volume24h >= h.MinVolume24h):
		return wait("24h volume %.0f below %.0f", m.Liquidity.Volume24h, h.MinVolume24h)
	case m.Pricing.Spread > h.MaxSpread:
		return wait("spread %.3f above %.3f", m.Pricing.Spread, h.MaxSpread)
	case mid <= h.MinMidpoint || mid > h.MaxMidpoint:
		return wait("midpoint %.3f outside (%.2f, %.2f]", mid, h.MinMidpoint, h.MaxMidpoint)
	}
	implied, ok := m.ImpliedOdds()
	if !ok {
		return wait("no external odds signal")
	}
	gap := implied - mid
	if math.Abs(gap) <= h.MinOddsGap {
		return wait("external odds within %.2f of price", h.MinOddsGap)
	}
	side := market.SideYes
	if gap < 0 {
		side = market.SideNo
	}
	return QuickVerdict{Action: market.ActionBuy, Side: side}
}

// PipelineDeepScorer runs ensemble, risk and decision for one market.
type PipelineDeepScorer struct {
	Ensemble *ensemble.Ensemble
	Risk     *risk.Assessor
	Engine   *recommend.Engine
}

func (p *PipelineDeepScorer) Deep(ctx context.Context, m market.UnifiedMarket) (Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return Evaluation{}, err
	}
	a := p.Ensemble.Analyze(ctx, m)
	as := p.Risk.Assess(m)
	d := p.Engine.Decide(a, as, m)
	return Evaluation{
		Market:        m,
		Analysis:      a,
		Assessment:    as,
		Decision:      d,
		ExpectedValue: recommend.ExpectedValue(a.Edge, d.Confidence),
	}, nil
}
