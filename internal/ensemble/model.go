package ensemble

import (
	"encoding/json"

	"predictmax/internal/market"
)

// Kind tags a model's breakdown shape.
type Kind string

const (
	KindConsensus    Kind = "market_consensus"
	KindDomain       Kind = "domain_statistical"
	KindExternalOdds Kind = "external_odds"
	KindHistorical   Kind = "historical_baseline"
)

// Breakdown is the closed set of per-model detail payloads.
type Breakdown interface {
	Kind() Kind
}

type ConsensusBreakdown struct {
	Midpoint float64              `json:"midpoint"`
	Spread   float64              `json:"spread"`
	Tier     market.LiquidityTier `json:"tier"`
}

func (ConsensusBreakdown) Kind() Kind { return KindConsensus }

// DomainBreakdown explains a statistical estimate built from reference ratings.
type DomainBreakdown struct {
	Domain      string   `json:"domain"`
	Entities    []string `json:"entities,omitempty"`
	RatingA     float64  `json:"rating_a,omitempty"`
	RatingB     float64  `json:"rating_b,omitempty"`
	RatingGap   float64  `json:"rating_gap"`
	SampleSize  int      `json:"sample_size"`
	Description string   `json:"description,omitempty"`
}

func (DomainBreakdown) Kind() Kind { return KindDomain }

type ExternalOddsBreakdown struct {
	Bookmakers []string `json:"bookmakers"`
	Min        float64  `json:"min"`
	Max        float64  `json:"max"`
	// Overround is the summed implied probability before de-vigging.
	Overround float64 `json:"overround"`
}

func (ExternalOddsBreakdown) Kind() Kind { return KindExternalOdds }

type HistoricalBreakdown struct {
	Category    market.Category `json:"category"`
	BaseRate    float64         `json:"base_rate"`
	PriceAnchor float64         `json:"price_anchor"`
	Shrinkage   float64         `json:"shrinkage"`
}

func (HistoricalBreakdown) Kind() Kind { return KindHistorical }

// Model is one probability estimate for the YES outcome.
type Model struct {
	Name        string
	Probability float64
	Weight      float64
	Confidence  float64
	Breakdown   Breakdown
}

type modelJSON struct {
	Name        string    `json:"name"`
	Probability float64   `json:"probability"`
	Weight      float64   `json:"weight"`
	Confidence  float64   `json:"confidence"`
	Kind        Kind      `json:"kind,omitempty"`
	Breakdown   Breakdown `json:"breakdown,omitempty"`
}

func (m Model) MarshalJSON() ([]byte, error) {
	out := modelJSON{
		Name:        m.Name,
		Probability: m.Probability,
		Weight:      m.Weight,
		Confidence:  m.Confidence,
		Breakdown:   m.Breakdown,
	}
	if m.Breakdown != nil {
		out.Kind = m.Breakdown.Kind()
	}
	return json.Marshal(out)
}

func (m Model) sanitized() Model {
	m.Probability = market.Clamp01(m.Probability)
	m.Weight = market.Clamp01(m.Weight)
	m.Confidence = market.Clamp01(m.Confidence)
	return m
}

const (
	ConsensusName   = "market_consensus"
	ConsensusWeight = 0.3
)

// MarketConsensus reads the market's own midpoint as an estimator. Its
// confidence rises with liquidity tier and with narrow spreads.
func MarketConsensus(m market.UnifiedMarket) Model {
	conf := 0.5
	switch m.Liquidity.Score {
	case market.LiquidityHigh:
		conf = 0.85
	case market.LiquidityMedium:
		conf = 0.7
	}
	if bonus := 0.1 - m.Pricing.Spread; bonus > 0 {
		conf += bonus * 2
	}
	if conf > 0.95 {
		conf = 0.95
	}
	return Model{
		Name:        ConsensusName,
		Probability: market.Clamp01(m.Pricing.Midpoint),
		Weight:      ConsensusWeight,
		Confidence:  conf,
		Breakdown: ConsensusBreakdown{
			Midpoint: m.Pricing.Midpoint,
			Spread:   m.Pricing.Spread,
			Tier:     m.Liquidity.Score,
		},
	}
}
