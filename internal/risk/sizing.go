package risk

import (
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"predictmax/internal/apperr"
)

// DefaultBankroll is used when the caller supplies none.
var DefaultBankroll = decimal.NewFromInt(10000)

const (
	volumeCapFraction       = 0.01
	openInterestCapFraction = 0.005
)

type Sizing struct {
	Recommended      decimal.Decimal `json:"recommended"`
	Maximum          decimal.Decimal `json:"maximum"`
	ConservativeUnit decimal.Decimal `json:"conservative_unit"`
	KellyFraction    float64         `json:"kelly_fraction"`
	RawKelly         float64         `json:"raw_kelly"`
	LiquidityCap     decimal.Decimal `json:"liquidity_cap"`
	Bankroll         decimal.Decimal `json:"bankroll"`
	Warnings         []string        `json:"warnings,omitempty"`
}

// SizePosition derives a Kelly-based stake from the edge, scaled by
// confidence squared and by overall risk, and capped by market depth.
func (a *Assessor) SizePosition(as Assessment, edge, confidence float64, bankroll decimal.Decimal) Sizing {
	var warnings []string
	if bankroll.LessThanOrEqual(decimal.Zero) {
		bankroll = a.defaultBankroll()
		warnings = append(warnings, "bankroll_defaulted")
		if a != nil && a.Logger != nil {
			a.Logger.Debug("risk: bankroll defaulted",
				zap.String("market_id", as.MarketID),
				zap.String("bankroll", bankroll.StringFixed(2)),
				zap.Error(apperr.Configuration("size_position", nil)),
			)
		}
	}

	raw := rawKelly(edge)
	conf := clampUnit(confidence)
	adjusted := raw * conf * conf * (1 - clampUnit(as.OverallRisk)*0.5)
	if limit := a.kellyCap(); limit > 0 && adjusted > limit {
		adjusted = limit
		warnings = append(warnings, "kelly_fraction_cap")
	}
	adjusted = clampUnit(adjusted)

	liqCap := liquidityCap(as.Volume24h, as.OpenInterest, a.ceiling())
	bank := bankroll.InexactFloat64()

	recommended := math.Min(bank*adjusted/2, liqCap)
	maximum := math.Min(bank*adjusted, liqCap)
	conservative := math.Min(bank*adjusted/4, liqCap)
	if liqCap < bank*adjusted {
		warnings = append(warnings, "liquidity_cap")
	}

	return Sizing{
		Recommended:      money(recommended),
		Maximum:          money(maximum),
		ConservativeUnit: money(conservative),
		KellyFraction:    adjusted,
		RawKelly:         raw,
		LiquidityCap:     money(liqCap),
		Bankroll:         bankroll,
		Warnings:         warnings,
	}
}

// rawKelly prices the bet at even money around the edge-implied win
// probability p = 0.5 + |edge|/2, which reduces to 2p-1 = |edge|.
func rawKelly(edge float64) float64 {
	p := 0.5 + math.Abs(edge)/2
	p = math.Min(p, 1)
	const b = 1.0
	k := (b*p - (1 - p)) / b
	return math.Max(0, k)
}

// liquidityCap limits a stake to 1% of 24h volume, 0.5% of open interest (when
// reported) and an absolute ceiling.
func liquidityCap(volume24h, openInterest, ceiling float64) float64 {
	c := math.Max(0, volume24h) * volumeCapFraction
	if openInterest > 0 {
		c = math.Min(c, openInterest*openInterestCapFraction)
	}
	if ceiling > 0 {
		c = math.Min(c, ceiling)
	}
	return math.Max(0, c)
}

func money(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(2)
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (a *Assessor) defaultBankroll() decimal.Decimal {
	if a != nil && a.Config.DefaultBankrollUSD > 0 {
		return decimal.NewFromFloat(a.Config.DefaultBankrollUSD)
	}
	return DefaultBankroll
}

func (a *Assessor) kellyCap() float64 {
	if a == nil {
		return 0
	}
	return a.Config.KellyFractionCap
}

func (a *Assessor) ceiling() float64 {
	if a == nil {
		return 0
	}
	return a.Config.AbsoluteCeilingUSD
}
