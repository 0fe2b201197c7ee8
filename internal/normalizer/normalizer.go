package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"predictmax/internal/apperr"
	"predictmax/internal/market"
)

// Schema names the source-specific layout of a raw record.
type Schema string

const (
	SchemaKalshi     Schema = "kalshi"
	SchemaPolymarket Schema = "polymarket"
	// SchemaGeneric carries already-canonical field names; prices may be cents or probabilities.
	SchemaGeneric Schema = "generic"
)

// DefaultHorizon replaces unparseable close and expiration times.
const DefaultHorizon = 30 * 24 * time.Hour

// Data-quality warnings recorded on normalized markets.
const (
	WarnCloseTimeDefaulted      = "close_time_defaulted"
	WarnExpirationTimeDefaulted = "expiration_time_defaulted"
	WarnPricingFromLast         = "pricing_from_last_price"
	WarnPricingMissing          = "pricing_missing"
	WarnIDDerived               = "id_derived"
	WarnStatusUnknown           = "status_unknown"
)

type RawRecord struct {
	Schema  Schema          `json:"schema"`
	Payload json.RawMessage `json:"payload"`
}

type Normalizer struct {
	Now     func() time.Time
	Horizon time.Duration
	Logger  *zap.Logger
}

// draft is the schema-independent intermediate every source decoder fills.
type draft struct {
	id             string
	platform       market.Platform
	question       string
	sourceCategory string
	tags           []string
	series         string
	event          string
	ticker         string
	outcomes       []string
	status         market.Status
	closeRaw       string
	expirationRaw  string
	quote          quote
	volume24h      float64
	totalVolume    float64
	openInterest   float64
	notional       float64
	warnings       []string
}

func New(logger *zap.Logger) *Normalizer {
	return &Normalizer{Logger: logger}
}

// Normalize converts one raw record. It fails only when the payload cannot be
// decoded as the declared schema; every missing field resolves to a documented
// default and is listed in DataWarnings.
func (n *Normalizer) Normalize(raw RawRecord) (market.UnifiedMarket, error) {
	var (
		d   draft
		err error
	)
	switch Schema(strings.ToLower(string(raw.Schema))) {
	case SchemaKalshi:
		d, err = decodeKalshi(raw.Payload)
	case SchemaPolymarket:
		d, err = decodePolymarket(raw.Payload)
	case SchemaGeneric:
		d, err = decodeGeneric(raw.Payload)
	default:
		return market.UnifiedMarket{}, apperr.Data("normalize", fmt.Errorf("unknown schema %q", raw.Schema))
	}
	if err != nil {
		return market.UnifiedMarket{}, apperr.Data("normalize "+string(raw.Schema), err)
	}
	if strings.TrimSpace(d.id) == "" && strings.TrimSpace(d.question) == "" {
		return market.UnifiedMarket{}, apperr.Data("normalize "+string(raw.Schema), errors.New("record has neither id nor question"))
	}
	return n.build(d, raw.Payload), nil
}

// NormalizeAll normalizes a batch, dropping records that cannot be decoded.
func (n *Normalizer) NormalizeAll(raws []RawRecord) []market.UnifiedMarket {
	out := make([]market.UnifiedMarket, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		m, err := n.Normalize(raw)
		if err != nil {
			skipped++
			if n != nil && n.Logger != nil {
				n.Logger.Debug("normalizer: skip record", zap.String("schema", string(raw.Schema)), zap.Error(err))
			}
			continue
		}
		out = append(out, m)
	}
	if skipped > 0 && n != nil && n.Logger != nil {
		n.Logger.Info("normalizer: batch done", zap.Int("ok", len(out)), zap.Int("skipped", skipped))
	}
	return out
}

func (n *Normalizer) build(d draft, payload json.RawMessage) market.UnifiedMarket {
	now := n.now()
	warnings := append([]string(nil), d.warnings...)

	id := strings.TrimSpace(d.id)
	if id == "" {
		id = string(d.platform) + ":" + slugify(d.question)
		warnings = append(warnings, WarnIDDerived)
	}

	closeTime, ok := parseTime(d.closeRaw)
	if !ok {
		closeTime = now.Add(n.horizon())
		warnings = append(warnings, WarnCloseTimeDefaulted)
	}
	expTime, ok := parseTime(d.expirationRaw)
	if !ok {
		if strings.TrimSpace(d.expirationRaw) == "" {
			expTime = closeTime
		} else {
			expTime = now.Add(n.horizon())
			warnings = append(warnings, WarnExpirationTimeDefaulted)
		}
	}

	status := d.status
	if status == "" {
		status = market.StatusOpen
		warnings = append(warnings, WarnStatusUnknown)
	}

	pricing, pw := derivePricing(d.quote)
	warnings = append(warnings, pw...)

	outcomes := d.outcomes
	if len(outcomes) == 0 {
		outcomes = []string{"Yes", "No"}
	}

	m := market.UnifiedMarket{
		ID:       id,
		Platform: d.platform,
		Question: strings.TrimSpace(d.question),
		Category: Categorize(d.question, d.sourceCategory),
		Tags:     market.NormalizeTags(d.tags),
		Series:   d.series,
		Event:    d.event,
		Market: market.Contract{
			Ticker:         d.ticker,
			Outcomes:       outcomes,
			Status:         status,
			CloseTime:      closeTime.UTC(),
			ExpirationTime: expTime.UTC(),
		},
		Pricing: pricing,
		Liquidity: market.Liquidity{
			Volume24h:     nonNegative(d.volume24h),
			TotalVolume:   nonNegative(d.totalVolume),
			OpenInterest:  nonNegative(d.openInterest),
			NotionalValue: nonNegative(d.notional),
			Score:         LiquidityScore(d.volume24h, SecondaryDepth(d.platform, d.openInterest, d.notional), pricing.Spread),
		},
		DataWarnings: warnings,
		Raw:          append(json.RawMessage(nil), payload...),
	}
	if m.Event == "" {
		m.Event = m.Question
	}
	return m
}

func (n *Normalizer) now() time.Time {
	if n != nil && n.Now != nil {
		return n.Now()
	}
	return time.Now().UTC()
}

func (n *Normalizer) horizon() time.Duration {
	if n != nil && n.Horizon > 0 {
		return n.Horizon
	}
	return DefaultHorizon
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			if t.Year() < 2000 {
				return time.Time{}, false
			}
			return t, true
		}
	}
	return time.Time{}, false
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
