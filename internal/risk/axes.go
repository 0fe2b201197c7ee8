package risk

import (
	"math"
	"strings"

	"predictmax/internal/market"
)

type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Metric is one risk axis scored 1 (safe) to 10 (risky).
type Metric struct {
	Score   int            `json:"score"`
	Level   Level          `json:"level"`
	Details map[string]any `json:"details,omitempty"`
}

func newMetric(score int, details map[string]any) Metric {
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return Metric{Score: score, Level: levelFor(score), Details: details}
}

func levelFor(score int) Level {
	switch {
	case score <= 4:
		return LevelLow
	case score <= 6:
		return LevelMedium
	default:
		return LevelHigh
	}
}

func LiquidityRisk(volume24h, spread, openInterest float64) Metric {
	var score int
	switch {
	case volume24h >= 50000 && spread <= 0.02 && openInterest >= 100000:
		score = 2
	case volume24h >= 10000 && spread <= 0.05 && openInterest >= 10000:
		score = 4
	case volume24h >= 1000 && spread <= 0.10:
		score = 6
	case volume24h >= 100:
		score = 8
	default:
		score = 9
	}
	return newMetric(score, map[string]any{
		"volume_24h":    volume24h,
		"spread":        spread,
		"open_interest": openInterest,
	})
}

var hedgeWords = []string{"approximately", "around", "roughly", "estimated", "close to", "near"}

// SettlementRisk scores how contestable resolution is: platform trust class,
// non-open status, and vague wording in the question.
func SettlementRisk(p market.Platform, status market.Status, question string) Metric {
	score := 6
	switch p.TrustClass() {
	case market.TrustRegulated:
		score = 2
	case market.TrustCryptoSettled:
		score = 4
	}
	notOpen := status != market.StatusOpen
	if notOpen {
		score += 2
	}
	hedge := hedgeWord(question)
	if hedge != "" {
		score += 2
	}
	details := map[string]any{
		"platform": string(p),
		"status":   string(status),
	}
	if hedge != "" {
		details["ambiguous_wording"] = hedge
	}
	return newMetric(score, details)
}

func hedgeWord(question string) string {
	q := " " + strings.ToLower(question) + " "
	for _, w := range hedgeWords {
		for from := 0; from < len(q); {
			i := strings.Index(q[from:], w)
			if i < 0 {
				break
			}
			idx := from + i
			if !isAlnum(q[idx-1]) && !isAlnum(q[idx+len(w)]) {
				return w
			}
			from = idx + 1
		}
	}
	return ""
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

var categoryVolatility = map[market.Category]float64{
	market.CategorySports:    0.6,
	market.CategoryPolitics:  0.4,
	market.CategoryCrypto:    0.9,
	market.CategoryEconomics: 0.5,
	market.CategoryWeather:   0.3,
}

const defaultCategoryVolatility = 0.5

func CategoryVolatility(c market.Category) float64 {
	if v, ok := categoryVolatility[c]; ok {
		return v
	}
	return defaultCategoryVolatility
}

// VolatilityRisk blends price uncertainty (peaks at 0.5) with the category's base volatility.
func VolatilityRisk(midpoint float64, category market.Category) Metric {
	uncertainty := 1 - 2*math.Abs(market.Clamp01(midpoint)-0.5)
	base := CategoryVolatility(category)
	blended := 0.6*uncertainty + 0.4*base
	var score int
	switch {
	case blended < 0.3:
		score = 2
	case blended < 0.5:
		score = 4
	case blended < 0.7:
		score = 6
	default:
		score = 8
	}
	return newMetric(score, map[string]any{
		"uncertainty":     uncertainty,
		"category_base":   base,
		"blended":         blended,
		"market_category": string(category),
	})
}

func ConcentrationRisk(totalVolume, openInterest float64) Metric {
	var score int
	switch {
	case totalVolume > 1_000_000 && openInterest > 100_000:
		score = 2
	case totalVolume > 100_000 && openInterest > 10_000:
		score = 4
	case totalVolume > 10_000:
		score = 6
	default:
		score = 8
	}
	return newMetric(score, map[string]any{
		"total_volume":  totalVolume,
		"open_interest": openInterest,
	})
}

// TimeRisk is U-shaped in days to expiry: imminent and far-dated markets both score worse.
func TimeRisk(daysToExpiry float64) Metric {
	var score int
	switch {
	case daysToExpiry < 1:
		score = 9
	case daysToExpiry < 3:
		score = 7
	case daysToExpiry < 7:
		score = 5
	case daysToExpiry < 30:
		score = 3
	case daysToExpiry < 90:
		score = 4
	default:
		score = 6
	}
	details := map[string]any{}
	if !math.IsInf(daysToExpiry, 0) {
		details["days_to_expiry"] = math.Round(daysToExpiry*100) / 100
	}
	return newMetric(score, details)
}
