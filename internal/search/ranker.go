package search

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"predictmax/internal/market"
)

// MinTermOverlap is the fraction of query terms a market must contain in
// terms-only mode.
const MinTermOverlap = 0.5

const (
	scoreBase            = 10.0
	scorePerPart         = 20.0
	scoreAllEntities     = 50.0
	scoreCategory        = 30.0
	scoreLiquidityHigh   = 15.0
	scoreLiquidityMedium = 8.0
	scoreVolumeHigh      = 15.0
	scoreVolumeMedium    = 8.0
	scoreNearExpiry      = 5.0
)

type Scored struct {
	Market market.UnifiedMarket `json:"market"`
	Score  float64              `json:"score"`
}

type Ranker struct {
	Now    func() time.Time
	Logger *zap.Logger
}

// Filter keeps the markets relevant to q. Head-to-head queries need every
// entity to match; entity queries need any; otherwise term overlap decides.
func (r *Ranker) Filter(markets []market.UnifiedMarket, q ParsedQuery) []market.UnifiedMarket {
	out := make([]market.UnifiedMarket, 0, len(markets))
	for _, m := range markets {
		if matches(m.SearchText(), q) {
			out = append(out, m)
		}
	}
	return out
}

func matches(text string, q ParsedQuery) bool {
	switch {
	case q.HeadToHead && len(q.Entities) >= 2:
		for _, e := range q.Entities {
			if matchedParts(text, e) == 0 {
				return false
			}
		}
		return true
	case len(q.Entities) >= 1:
		for _, e := range q.Entities {
			if matchedParts(text, e) > 0 {
				return true
			}
		}
		return false
	case len(q.Terms) > 0:
		hit := 0
		for _, term := range q.Terms {
			if containsWord(text, term) {
				hit++
			}
		}
		return float64(hit)/float64(len(q.Terms)) >= MinTermOverlap
	default:
		return true
	}
}

func matchedParts(text string, e Entity) int {
	n := 0
	for _, p := range e.Parts {
		if containsWord(text, p) {
			n++
		}
	}
	return n
}

// Score rates the relevance of m to q.
func (r *Ranker) Score(m market.UnifiedMarket, q ParsedQuery) float64 {
	text := m.SearchText()
	score := scoreBase

	allMatched := len(q.Entities) > 0
	for _, e := range q.Entities {
		n := matchedParts(text, e)
		score += scorePerPart * float64(n)
		if n == 0 {
			allMatched = false
		}
	}
	if q.HeadToHead && len(q.Entities) >= 2 && allMatched {
		score += scoreAllEntities
	}
	if q.Category != "" && m.Category == q.Category {
		score += scoreCategory
	}

	switch m.Liquidity.Score {
	case market.LiquidityHigh:
		score += scoreLiquidityHigh
	case market.LiquidityMedium:
		score += scoreLiquidityMedium
	}
	switch {
	case m.Liquidity.Volume24h > 10000:
		score += scoreVolumeHigh
	case m.Liquidity.Volume24h > 1000:
		score += scoreVolumeMedium
	}
	if days := m.DaysToExpiry(r.now()); days > 1 && days < 30 {
		score += scoreNearExpiry
	}
	return score
}

// Rank filters and orders markets by score, then 24h volume, then input order.
func (r *Ranker) Rank(markets []market.UnifiedMarket, q ParsedQuery) []Scored {
	kept := r.Filter(markets, q)
	out := make([]Scored, 0, len(kept))
	for _, m := range kept {
		out = append(out, Scored{Market: m, Score: r.Score(m, q)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Market.Liquidity.Volume24h > out[j].Market.Liquidity.Volume24h
	})
	if r != nil && r.Logger != nil {
		r.Logger.Debug("search: ranked",
			zap.Int("input", len(markets)),
			zap.Int("kept", len(out)),
			zap.Int("entities", len(q.Entities)),
			zap.Int("terms", len(q.Terms)),
		)
	}
	return out
}

func (r *Ranker) now() time.Time {
	if r != nil && r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}
