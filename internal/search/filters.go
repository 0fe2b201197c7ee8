package search

import (
	"strings"
	"time"

	"predictmax/internal/market"
)

// Filters narrows a catalog before relevance ranking. Zero values disable a filter.
type Filters struct {
	Platform     market.Platform      `json:"platform,omitempty" form:"platform"`
	Category     market.Category      `json:"category,omitempty" form:"category"`
	SearchQuery  string               `json:"search_query,omitempty" form:"q"`
	MinVolume    float64              `json:"min_volume,omitempty" form:"min_volume"`
	MinLiquidity market.LiquidityTier `json:"min_liquidity,omitempty" form:"min_liquidity"`
	MinEndDate   *time.Time           `json:"min_end_date,omitempty" form:"min_end_date" time_format:"2006-01-02"`
	MaxEndDate   *time.Time           `json:"max_end_date,omitempty" form:"max_end_date" time_format:"2006-01-02"`
	Limit        int                  `json:"limit,omitempty" form:"limit"`
}

func ApplyFilters(markets []market.UnifiedMarket, f Filters) []market.UnifiedMarket {
	out := make([]market.UnifiedMarket, 0, len(markets))
	minTier := f.MinLiquidity.Rank()
	for _, m := range markets {
		if f.Platform != "" && !strings.EqualFold(string(m.Platform), string(f.Platform)) {
			continue
		}
		if f.Category != "" && m.Category != f.Category {
			continue
		}
		if f.MinVolume > 0 && m.Liquidity.Volume24h < f.MinVolume {
			continue
		}
		if minTier > 0 && m.Liquidity.Score.Rank() < minTier {
			continue
		}
		if f.MinEndDate != nil && m.Market.CloseTime.Before(*f.MinEndDate) {
			continue
		}
		if f.MaxEndDate != nil && m.Market.CloseTime.After(*f.MaxEndDate) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Search applies filters, ranks by q (or by the filter's free text when q is
// nil) and truncates to the limit.
func (r *Ranker) Search(markets []market.UnifiedMarket, f Filters, q *ParsedQuery) []market.UnifiedMarket {
	filtered := ApplyFilters(markets, f)
	if q == nil && strings.TrimSpace(f.SearchQuery) != "" {
		tq := TermsQuery(f.SearchQuery)
		q = &tq
	}
	var out []market.UnifiedMarket
	if q == nil {
		out = filtered
	} else {
		query := *q
		if query.Category == "" && f.Category != "" {
			query.Category = f.Category
		}
		ranked := r.Rank(filtered, query)
		out = make([]market.UnifiedMarket, 0, len(ranked))
		for _, s := range ranked {
			out = append(out, s.Market)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
