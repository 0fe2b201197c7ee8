package provider

import (
	"context"

	"predictmax/internal/ensemble"
	"predictmax/internal/market"
)

const (
	HistoricalName       = "historical_baseline"
	historicalConfidence = 0.3
)

// HistoricalBaseline shrinks the market price toward the category's long-run
// YES rate. Thinner books are shrunk harder.
type HistoricalBaseline struct {
	Reference ReferenceData
	Weight    float64
}

func (h *HistoricalBaseline) Name() string { return HistoricalName }

func (h *HistoricalBaseline) Estimate(_ context.Context, m market.UnifiedMarket) (*ensemble.Model, error) {
	if h == nil || h.Reference == nil {
		return nil, nil
	}
	rate, ok := h.Reference.BaseRate(m.Category)
	if !ok {
		return nil, nil
	}
	s := shrinkage(m.Liquidity.Score)
	anchor := market.Clamp01(m.Pricing.Midpoint)
	return &ensemble.Model{
		Name:        HistoricalName,
		Probability: (1-s)*anchor + s*rate,
		Weight:      h.Weight,
		Confidence:  historicalConfidence,
		Breakdown: ensemble.HistoricalBreakdown{
			Category:    m.Category,
			BaseRate:    rate,
			PriceAnchor: anchor,
			Shrinkage:   s,
		},
	}, nil
}

func shrinkage(tier market.LiquidityTier) float64 {
	switch tier {
	case market.LiquidityHigh:
		return 0.1
	case market.LiquidityMedium:
		return 0.2
	default:
		return 0.35
	}
}
