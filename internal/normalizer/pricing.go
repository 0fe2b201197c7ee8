package normalizer

import (
	"math"

	"predictmax/internal/market"
)

// quote holds source prices already scaled to [0,1]. Nil means "not reported".
type quote struct {
	yesBid *float64
	yesAsk *float64
	noBid  *float64
	noAsk  *float64
	// yesPrice/noPrice are single-sided outcome prices (one number per side).
	yesPrice *float64
	noPrice  *float64
	last     *float64
}

func derivePricing(q quote) (market.Pricing, []string) {
	var (
		p        market.Pricing
		warnings []string
	)
	switch {
	case q.yesBid != nil && q.yesAsk != nil:
		bid, ask := market.Clamp01(*q.yesBid), market.Clamp01(*q.yesAsk)
		if bid > ask {
			bid, ask = ask, bid
		}
		p.YesBid, p.YesAsk = bid, ask
		p.NoBid = complementOr(q.noBid, 1-ask)
		p.NoAsk = complementOr(q.noAsk, 1-bid)
		p.Spread = ask - bid
		p.Midpoint = (bid + ask) / 2
	case q.yesPrice != nil || q.noPrice != nil:
		yes, no := sidePrices(q.yesPrice, q.noPrice)
		impliedYes := 1 - no
		p.YesBid = math.Min(yes, impliedYes)
		p.YesAsk = math.Max(yes, impliedYes)
		p.NoBid = 1 - p.YesAsk
		p.NoAsk = 1 - p.YesBid
		p.Spread = math.Abs(yes - impliedYes)
		p.Midpoint = (yes + impliedYes) / 2
	case q.last != nil:
		last := market.Clamp01(*q.last)
		p.YesBid, p.YesAsk = last, last
		p.NoBid, p.NoAsk = 1-last, 1-last
		p.Midpoint = last
		warnings = append(warnings, WarnPricingFromLast)
	default:
		p.YesBid, p.YesAsk, p.NoBid, p.NoAsk = 0.5, 0.5, 0.5, 0.5
		p.Midpoint = 0.5
		warnings = append(warnings, WarnPricingMissing)
	}
	if q.last != nil {
		p.LastPrice = market.Clamp01(*q.last)
	} else {
		p.LastPrice = p.Midpoint
	}
	return roundPricing(p), warnings
}

func sidePrices(yes, no *float64) (float64, float64) {
	switch {
	case yes != nil && no != nil:
		return market.Clamp01(*yes), market.Clamp01(*no)
	case yes != nil:
		y := market.Clamp01(*yes)
		return y, 1 - y
	default:
		n := market.Clamp01(*no)
		return 1 - n, n
	}
}

func complementOr(v *float64, fallback float64) float64 {
	if v != nil {
		return market.Clamp01(*v)
	}
	return market.Clamp01(fallback)
}

func roundPricing(p market.Pricing) market.Pricing {
	p.YesBid = round6(market.Clamp01(p.YesBid))
	p.YesAsk = round6(market.Clamp01(p.YesAsk))
	p.NoBid = round6(market.Clamp01(p.NoBid))
	p.NoAsk = round6(market.Clamp01(p.NoAsk))
	p.LastPrice = round6(market.Clamp01(p.LastPrice))
	p.Midpoint = round6(market.Clamp01(p.Midpoint))
	p.Spread = round6(math.Max(0, p.Spread))
	return p
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// LiquidityScore tiers a market by 24h volume, a secondary depth measure
// (open interest or resting liquidity) and spread.
func LiquidityScore(volume24h, secondaryDepth, spread float64) market.LiquidityTier {
	switch {
	case volume24h >= 10000 && (spread <= 0.05 || secondaryDepth >= 10000):
		return market.LiquidityHigh
	case volume24h >= 1000 && (spread <= 0.10 || secondaryDepth >= 1000):
		return market.LiquidityMedium
	default:
		return market.LiquidityLow
	}
}

// Tick is a live top-of-book update. Zero fields are left unchanged.
type Tick struct {
	MarketID  string  `json:"market_id"`
	YesBid    float64 `json:"yes_bid"`
	YesAsk    float64 `json:"yes_ask"`
	LastPrice float64 `json:"last_price"`
	Volume24h float64 `json:"volume_24h"`
}

// ApplyTick returns a copy of m repriced from t, keeping every pricing invariant.
func ApplyTick(m market.UnifiedMarket, t Tick) market.UnifiedMarket {
	q := quote{}
	bid, ask := m.Pricing.YesBid, m.Pricing.YesAsk
	if t.YesBid > 0 {
		bid = t.YesBid
	}
	if t.YesAsk > 0 {
		ask = t.YesAsk
	}
	q.yesBid, q.yesAsk = &bid, &ask
	last := m.Pricing.LastPrice
	if t.LastPrice > 0 {
		last = t.LastPrice
	}
	q.last = &last
	pricing, _ := derivePricing(q)
	m.Pricing = pricing
	if t.Volume24h > 0 {
		m.Liquidity.Volume24h = t.Volume24h
	}
	depth := SecondaryDepth(m.Platform, m.Liquidity.OpenInterest, m.Liquidity.NotionalValue)
	m.Liquidity.Score = LiquidityScore(m.Liquidity.Volume24h, depth, pricing.Spread)
	return m
}

// SecondaryDepth picks the depth measure a platform reports reliably: resting
// book notional on Polymarket, open interest elsewhere.
func SecondaryDepth(p market.Platform, openInterest, notional float64) float64 {
	if p == market.PlatformPolymarket && notional > 0 {
		return notional
	}
	return openInterest
}
