package recommend

import (
	"math"

	"predictmax/internal/market"
	"predictmax/internal/risk"
)

const (
	stopLossBand   = 0.15
	takeProfitBand = 0.20
	minPrice       = 0.01
	maxPrice       = 0.99
)

type PriceTargets struct {
	TargetEntry      float64  `json:"target_entry"`
	LimitPrice       float64  `json:"limit_price"`
	ExpectedSlippage float64  `json:"expected_slippage"`
	StopLoss         *float64 `json:"stop_loss,omitempty"`
	TakeProfit       *float64 `json:"take_profit,omitempty"`
}

type Urgency string

const (
	UrgencyHigh   Urgency = "HIGH"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyLow    Urgency = "LOW"
)

type Timing struct {
	Urgency      Urgency `json:"urgency"`
	TimeHorizon  string  `json:"time_horizon"`
	ExitStrategy string  `json:"exit_strategy"`
	OptimalEntry string  `json:"optimal_entry"`
}

// ExpectedSlippage is the price impact assumed for a marketable order by liquidity tier.
func ExpectedSlippage(tier market.LiquidityTier) float64 {
	switch tier {
	case market.LiquidityHigh:
		return 0.005
	case market.LiquidityMedium:
		return 0.01
	default:
		return 0.02
	}
}

// Prices places the entry at the chosen outcome's best bid and the limit at
// that outcome's best ask plus slippage. Stop and take-profit are fixed bands
// around the entry, set only for actionable sides.
func Prices(m market.UnifiedMarket, side market.Side, withExits bool) PriceTargets {
	bid, ask := m.Pricing.YesBid, m.Pricing.YesAsk
	if side == market.SideNo {
		bid, ask = m.Pricing.NoBid, m.Pricing.NoAsk
	}
	slip := ExpectedSlippage(m.Liquidity.Score)
	pt := PriceTargets{
		TargetEntry:      round4(bid),
		LimitPrice:       round4(math.Min(ask+slip, maxPrice)),
		ExpectedSlippage: slip,
	}
	if withExits {
		stop := round4(math.Max(bid-stopLossBand, minPrice))
		take := round4(math.Min(bid+takeProfitBand, maxPrice))
		pt.StopLoss, pt.TakeProfit = &stop, &take
	}
	return pt
}

// Timings picks urgency from edge and expiry, and text from the same day
// buckets the time-risk axis uses.
func Timings(edgePct, days float64) Timing {
	t := Timing{Urgency: UrgencyLow}
	switch {
	case edgePct > 10 && days < 7:
		t.Urgency = UrgencyHigh
	case edgePct > 5 || days < 14:
		t.Urgency = UrgencyMedium
	}
	switch {
	case days < 1:
		t.TimeHorizon = "intraday"
		t.ExitStrategy = "hold to resolution; the book thins out before close"
		t.OptimalEntry = "now, resting limit orders may not fill before close"
	case days < 3:
		t.TimeHorizon = "1-3 days"
		t.ExitStrategy = "hold to resolution unless new information reverses the edge"
		t.OptimalEntry = "within the next few hours"
	case days < 7:
		t.TimeHorizon = "this week"
		t.ExitStrategy = "take profit at target or hold to resolution"
		t.OptimalEntry = "today, scale in with limit orders"
	case days < 30:
		t.TimeHorizon = "1-4 weeks"
		t.ExitStrategy = "exit at take-profit or on stop; reassess on news"
		t.OptimalEntry = "scale in over several days at or below target entry"
	case days < 90:
		t.TimeHorizon = "1-3 months"
		t.ExitStrategy = "trade the range; trim as price converges to fair value"
		t.OptimalEntry = "patiently, on dips toward target entry"
	default:
		t.TimeHorizon = "3+ months"
		t.ExitStrategy = "small position; capital is locked for a long time"
		t.OptimalEntry = "only at a discount to target entry"
	}
	return t
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// keyFactors summarizes what drove the decision.
func keyFactors(m market.UnifiedMarket, edgePct float64, confidence float64, dominant string, days float64) []string {
	out := []string{
		formatf("edge %+.1f pts", edgePct),
		formatf("model confidence %.0f%%", confidence*100),
		formatf("liquidity %s, 24h volume %.0f", m.Liquidity.Score, m.Liquidity.Volume24h),
	}
	if dominant != "" {
		out = append(out, "strongest model: "+dominant)
	}
	if !math.IsInf(days, 0) {
		out = append(out, formatf("%.1f days to close", days))
	}
	return out
}

func risks(m market.UnifiedMarket, as risk.Assessment) []string {
	out := append([]string{}, as.RiskFactors...)
	for _, w := range m.DataWarnings {
		out = append(out, "data: "+w)
	}
	return out
}
