package risk

import (
	"time"

	"go.uber.org/zap"

	"predictmax/internal/config"
	"predictmax/internal/market"
)

// Axis weights for the overall score; they sum to 1.
const (
	weightLiquidity     = 0.30
	weightSettlement    = 0.15
	weightVolatility    = 0.25
	weightConcentration = 0.15
	weightTime          = 0.15
)

type Assessment struct {
	MarketID      string   `json:"market_id"`
	Liquidity     Metric   `json:"liquidity"`
	Settlement    Metric   `json:"settlement"`
	Volatility    Metric   `json:"volatility"`
	Concentration Metric   `json:"concentration"`
	Time          Metric   `json:"time"`
	OverallRisk   float64  `json:"overall_risk"`
	RiskFactors   []string `json:"risk_factors"`

	// Depth figures used to cap position size.
	Volume24h    float64 `json:"volume_24h"`
	OpenInterest float64 `json:"open_interest"`
}

// Assessor scores market risk and sizes positions. It holds no mutable state.
type Assessor struct {
	Config config.RiskConfig
	Logger *zap.Logger
	Now    func() time.Time
}

func (a *Assessor) Assess(m market.UnifiedMarket) Assessment {
	out := Assessment{
		MarketID:      m.ID,
		Liquidity:     LiquidityRisk(m.Liquidity.Volume24h, m.Pricing.Spread, m.Liquidity.OpenInterest),
		Settlement:    SettlementRisk(m.Platform, m.Market.Status, m.Question),
		Volatility:    VolatilityRisk(m.Pricing.Midpoint, m.Category),
		Concentration: ConcentrationRisk(m.Liquidity.TotalVolume, m.Liquidity.OpenInterest),
		Time:          TimeRisk(m.DaysToExpiry(a.now())),
		Volume24h:     m.Liquidity.Volume24h,
		OpenInterest:  m.Liquidity.OpenInterest,
	}
	out.OverallRisk = overallRisk(out)
	out.RiskFactors = riskFactors(out)
	return out
}

func overallRisk(a Assessment) float64 {
	sum := float64(a.Liquidity.Score)*weightLiquidity +
		float64(a.Settlement.Score)*weightSettlement +
		float64(a.Volatility.Score)*weightVolatility +
		float64(a.Concentration.Score)*weightConcentration +
		float64(a.Time.Score)*weightTime
	return market.Clamp01(sum / 10)
}

func riskFactors(a Assessment) []string {
	out := []string{}
	if a.Liquidity.Level == LevelHigh {
		out = append(out, "high_liquidity_risk: thin volume or wide spread")
	}
	if a.Settlement.Level == LevelHigh {
		out = append(out, "high_settlement_risk: resolution may be disputed or delayed")
	}
	if a.Volatility.Level == LevelHigh {
		out = append(out, "high_volatility_risk: price near coin-flip in a volatile category")
	}
	if a.Concentration.Level == LevelHigh {
		out = append(out, "high_concentration_risk: little total volume or open interest")
	}
	if a.Time.Level == LevelHigh {
		out = append(out, "high_time_risk: expiry is imminent")
	}
	return out
}

func (a *Assessor) now() time.Time {
	if a != nil && a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}
