package service

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"predictmax/internal/market"
	"predictmax/internal/models"
	"predictmax/internal/recommend"
	"predictmax/internal/scanner"
)

func snapshotFromMarket(m market.UnifiedMarket) (models.MarketSnapshot, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return models.MarketSnapshot{}, err
	}
	item := models.MarketSnapshot{
		ID:             m.ID,
		Platform:       string(m.Platform),
		Question:       m.Question,
		Category:       string(m.Category),
		Event:          m.Event,
		Status:         string(m.Market.Status),
		YesBid:         decimal.NewFromFloat(m.Pricing.YesBid),
		YesAsk:         decimal.NewFromFloat(m.Pricing.YesAsk),
		Midpoint:       decimal.NewFromFloat(m.Pricing.Midpoint),
		Spread:         decimal.NewFromFloat(m.Pricing.Spread),
		Volume24h:      decimal.NewFromFloat(m.Liquidity.Volume24h),
		TotalVolume:    decimal.NewFromFloat(m.Liquidity.TotalVolume),
		LiquidityScore: string(m.Liquidity.Score),
		Tags:           jsonOrNull(m.Tags),
		DataWarnings:   jsonOrNull(m.DataWarnings),
		Payload:        datatypes.JSON(payload),
	}
	if m.Series != "" {
		series := m.Series
		item.Series = &series
	}
	if !m.Market.CloseTime.IsZero() {
		t := m.Market.CloseTime
		item.CloseTime = &t
	}
	if m.Liquidity.OpenInterest > 0 {
		oi := decimal.NewFromFloat(m.Liquidity.OpenInterest)
		item.OpenInterest = &oi
	}
	return item, nil
}

func marketFromSnapshot(item models.MarketSnapshot) (market.UnifiedMarket, error) {
	var m market.UnifiedMarket
	if err := json.Unmarshal(item.Payload, &m); err != nil {
		return market.UnifiedMarket{}, err
	}
	if m.ID == "" {
		m.ID = item.ID
	}
	return m, nil
}

func recommendationRow(rank int, rec recommend.TradeRecommendation) (models.Recommendation, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return models.Recommendation{}, err
	}
	row := models.Recommendation{
		Rank:            rank,
		MarketID:        rec.MarketID,
		Action:          string(rec.Action),
		Confidence:      rec.Confidence,
		EdgePct:         decimal.NewFromFloat(rec.Edge * 100).Round(4),
		FairValue:       decimal.NewFromFloat(rec.FairValue).Round(6),
		MarketPrice:     decimal.NewFromFloat(rec.MarketPrice).Round(6),
		ExpectedValue:   rec.ExpectedValue,
		RecommendedSize: rec.Sizing.Recommended,
		MaxSize:         rec.Sizing.Maximum,
		Reasoning:       rec.Reasoning,
		ReasoningSource: rec.ReasoningSource,
		Payload:         datatypes.JSON(payload),
	}
	if rec.Side != "" {
		side := string(rec.Side)
		row.Side = &side
	}
	if rec.WaitReason != "" {
		reason := rec.WaitReason
		row.WaitReason = &reason
	}
	return row, nil
}

// alternativeRow stores a ranked alternative from its scan summary; it has no
// sizing or narrative of its own.
func alternativeRow(rank int, c scanner.Candidate) (models.Recommendation, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return models.Recommendation{}, err
	}
	row := models.Recommendation{
		Rank:            rank,
		MarketID:        c.Market.ID,
		Action:          string(c.Action),
		Confidence:      c.Confidence,
		EdgePct:         decimal.NewFromFloat(c.Edge * 100).Round(4),
		FairValue:       decimal.NewFromFloat(c.Market.Pricing.Midpoint + c.Edge).Round(6),
		MarketPrice:     decimal.NewFromFloat(c.Market.Pricing.Midpoint).Round(6),
		ExpectedValue:   c.ExpectedValue,
		RecommendedSize: decimal.Zero,
		MaxSize:         decimal.Zero,
		Payload:         datatypes.JSON(payload),
	}
	if c.Side != "" {
		side := string(c.Side)
		row.Side = &side
	}
	if c.WaitReason != "" {
		reason := c.WaitReason
		row.WaitReason = &reason
	}
	return row, nil
}

func jsonOrNull(v []string) datatypes.JSON {
	if len(v) == 0 {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
