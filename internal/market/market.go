package market

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"
)

type Platform string

const (
	PlatformKalshi     Platform = "kalshi"
	PlatformPolymarket Platform = "polymarket"
)

// TrustClass groups platforms by how their contracts settle.
type TrustClass int

const (
	TrustUnknown TrustClass = iota
	TrustRegulated
	TrustCryptoSettled
)

func (p Platform) TrustClass() TrustClass {
	switch p {
	case PlatformKalshi:
		return TrustRegulated
	case PlatformPolymarket:
		return TrustCryptoSettled
	default:
		return TrustUnknown
	}
}

type Status string

const (
	StatusOpen        Status = "open"
	StatusClosed      Status = "closed"
	StatusSettled     Status = "settled"
	StatusInitialized Status = "initialized"
)

type LiquidityTier string

const (
	LiquidityLow    LiquidityTier = "LOW"
	LiquidityMedium LiquidityTier = "MEDIUM"
	LiquidityHigh   LiquidityTier = "HIGH"
)

// Rank orders tiers LOW < MEDIUM < HIGH. Unknown tiers rank below LOW.
func (t LiquidityTier) Rank() int {
	switch t {
	case LiquidityLow:
		return 1
	case LiquidityMedium:
		return 2
	case LiquidityHigh:
		return 3
	default:
		return 0
	}
}

type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionWait Action = "WAIT"
)

type Contract struct {
	Ticker         string    `json:"ticker"`
	Outcomes       []string  `json:"outcomes"`
	Status         Status    `json:"status"`
	CloseTime      time.Time `json:"close_time"`
	ExpirationTime time.Time `json:"expiration_time"`
}

// Pricing holds YES-outcome probabilities in [0,1].
type Pricing struct {
	YesBid    float64 `json:"yes_bid"`
	YesAsk    float64 `json:"yes_ask"`
	NoBid     float64 `json:"no_bid"`
	NoAsk     float64 `json:"no_ask"`
	LastPrice float64 `json:"last_price"`
	Spread    float64 `json:"spread"`
	Midpoint  float64 `json:"midpoint"`
}

type Liquidity struct {
	Volume24h     float64       `json:"volume_24h"`
	TotalVolume   float64       `json:"total_volume"`
	OpenInterest  float64       `json:"open_interest"`
	NotionalValue float64       `json:"notional_value"`
	Score         LiquidityTier `json:"liquidity_score"`
}

// DomainContext is enrichment attached by a domain provider.
// ImpliedOdds is the YES probability implied by external bookmaker odds, when known.
type DomainContext struct {
	Kind        string            `json:"kind"`
	Source      string            `json:"source,omitempty"`
	Entities    []string          `json:"entities,omitempty"`
	ImpliedOdds *float64          `json:"implied_odds,omitempty"`
	Notes       map[string]string `json:"notes,omitempty"`
}

type UnifiedMarket struct {
	ID           string          `json:"id"`
	Platform     Platform        `json:"platform"`
	Question     string          `json:"question"`
	Category     Category        `json:"category"`
	Tags         []string        `json:"tags,omitempty"`
	Series       string          `json:"series,omitempty"`
	Event        string          `json:"event"`
	Market       Contract        `json:"market"`
	Pricing      Pricing         `json:"pricing"`
	Liquidity    Liquidity       `json:"liquidity"`
	Domain       *DomainContext  `json:"domain,omitempty"`
	DataWarnings []string        `json:"data_warnings,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty" swaggertype:"object"`
}

// DaysToExpiry measures fractional days from now to the close time.
// Markets without a close time report +Inf.
func (m UnifiedMarket) DaysToExpiry(now time.Time) float64 {
	end := m.Market.CloseTime
	if end.IsZero() {
		end = m.Market.ExpirationTime
	}
	if end.IsZero() {
		return math.Inf(1)
	}
	return end.Sub(now).Hours() / 24
}

// SearchText is the lowercase text searched by discovery: question, event, series and tags.
func (m UnifiedMarket) SearchText() string {
	parts := make([]string, 0, 3+len(m.Tags))
	parts = append(parts, m.Question, m.Event, m.Series)
	parts = append(parts, m.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}

// WithDomain returns a copy carrying the given context.
func (m UnifiedMarket) WithDomain(dc *DomainContext) UnifiedMarket {
	m.Domain = dc
	return m
}

// ImpliedOdds reports the external-odds signal attached to the market, if any.
func (m UnifiedMarket) ImpliedOdds() (float64, bool) {
	if m.Domain == nil || m.Domain.ImpliedOdds == nil {
		return 0, false
	}
	return *m.Domain.ImpliedOdds, true
}

// NormalizeTags trims, lowercases and dedupes tags into a sorted set.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		t := strings.ToLower(strings.TrimSpace(raw))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
