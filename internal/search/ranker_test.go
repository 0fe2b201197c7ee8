package search

import (
	"testing"
	"time"

	"predictmax/internal/market"
)

var now = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

type aliasMap map[string][]string

func (a aliasMap) Aliases(name string) []string { return a[name] }

func mk(id, question string, vol float64, tier market.LiquidityTier, days float64) market.UnifiedMarket {
	return market.UnifiedMarket{
		ID:       id,
		Question: question,
		Category: market.CategoryOther,
		Market: market.Contract{
			CloseTime: now.Add(time.Duration(days * 24 * float64(time.Hour))),
		},
		Liquidity: market.Liquidity{Volume24h: vol, Score: tier},
	}
}

func ids(ms []market.UnifiedMarket) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func TestFilter_HeadToHeadRequiresEveryEntity(t *testing.T) {
	r := &Ranker{Now: func() time.Time { return now }}
	markets := []market.UnifiedMarket{
		mk("both", "Carlos Alcaraz vs Jannik Sinner: Wimbledon final", 100, market.LiquidityLow, 60),
		mk("one", "Will Alcaraz win Wimbledon?", 100, market.LiquidityLow, 60),
		mk("none", "Will it rain in London?", 100, market.LiquidityLow, 60),
	}
	q := ParsedQuery{
		HeadToHead: true,
		Entities: []Entity{
			NewEntity("Carlos Alcaraz", nil),
			NewEntity("Jannik Sinner", nil),
		},
	}
	got := ids(r.Filter(markets, q))
	if len(got) != 1 || got[0] != "both" {
		t.Fatalf("got=%v want=[both]", got)
	}

	q.HeadToHead = false
	got = ids(r.Filter(markets, q))
	if len(got) != 2 {
		t.Fatalf("any-entity got=%v want=[both one]", got)
	}
}

func TestFilter_AliasesAndWordBoundaries(t *testing.T) {
	r := &Ranker{}
	markets := []market.UnifiedMarket{
		mk("alias", "Will the Niners reach the Super Bowl?", 0, market.LiquidityLow, 60),
		mk("substring", "Will the ninersville council meet?", 0, market.LiquidityLow, 60),
	}
	q := ParsedQuery{Entities: []Entity{NewEntity("San Francisco 49ers", aliasMap{"San Francisco 49ers": {"Niners"}})}}
	got := ids(r.Filter(markets, q))
	if len(got) != 1 || got[0] != "alias" {
		t.Fatalf("got=%v want=[alias]", got)
	}
}

func TestFilter_TermOverlap(t *testing.T) {
	r := &Ranker{}
	markets := []market.UnifiedMarket{
		mk("half", "Bitcoin price end of March", 0, market.LiquidityLow, 60),
		mk("less", "Ethereum merge anniversary", 0, market.LiquidityLow, 60),
	}
	q := TermsQuery("bitcoin price ethereum etf")
	got := ids(r.Filter(markets, q))
	if len(got) != 1 || got[0] != "half" {
		t.Fatalf("got=%v want=[half] (terms=%v)", got, q.Terms)
	}
}

func TestScore_Components(t *testing.T) {
	r := &Ranker{Now: func() time.Time { return now }}
	m := mk("m", "Alcaraz vs Sinner", 20000, market.LiquidityHigh, 10)
	m.Category = market.CategorySports
	q := ParsedQuery{
		HeadToHead: true,
		Category:   market.CategorySports,
		Entities: []Entity{
			{Name: "Carlos Alcaraz", Parts: []string{"carlos", "alcaraz"}},
			{Name: "Jannik Sinner", Parts: []string{"jannik", "sinner"}},
		},
	}
	// 10 base + 2*20 parts + 50 all + 30 category + 15 HIGH + 15 volume + 5 expiry
	if got := r.Score(m, q); got != 165 {
		t.Fatalf("score=%v want=165", got)
	}
	far := mk("far", "Alcaraz vs Sinner", 2000, market.LiquidityMedium, 45)
	// 10 + 40 + 50 + 8 + 8
	if got := r.Score(far, q); got != 116 {
		t.Fatalf("score=%v want=116", got)
	}
}

func TestRank_TieBreaks(t *testing.T) {
	r := &Ranker{Now: func() time.Time { return now }}
	markets := []market.UnifiedMarket{
		mk("a", "Lakers game", 500, market.LiquidityLow, 60),
		mk("b", "Lakers game", 900, market.LiquidityLow, 60),
		mk("c", "Lakers game", 900, market.LiquidityLow, 60),
		mk("d", "Lakers title", 50000, market.LiquidityHigh, 60),
	}
	q := ParsedQuery{Entities: []Entity{NewEntity("Lakers", nil)}}
	got := r.Rank(markets, q)
	order := make([]string, 0, len(got))
	for _, s := range got {
		order = append(order, s.Market.ID)
	}
	want := []string{"d", "b", "c", "a"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order=%v want=%v", order, want)
		}
	}
}

func TestSearch_FiltersAndLimit(t *testing.T) {
	r := &Ranker{Now: func() time.Time { return now }}
	k := mk("k1", "Fed cuts rates in June", 5000, market.LiquidityMedium, 20)
	k.Platform = market.PlatformKalshi
	k.Category = market.CategoryEconomics
	p := mk("p1", "Fed cuts rates in July", 8000, market.LiquidityHigh, 50)
	p.Platform = market.PlatformPolymarket
	p.Category = market.CategoryEconomics
	low := mk("k2", "Fed cuts rates in September", 10, market.LiquidityLow, 20)
	low.Platform = market.PlatformKalshi
	low.Category = market.CategoryEconomics
	markets := []market.UnifiedMarket{k, p, low}

	got := ids(r.Search(markets, Filters{Platform: market.PlatformKalshi, MinLiquidity: market.LiquidityMedium}, nil))
	if len(got) != 1 || got[0] != "k1" {
		t.Fatalf("got=%v want=[k1]", got)
	}

	maxEnd := now.Add(30 * 24 * time.Hour)
	got = ids(r.Search(markets, Filters{SearchQuery: "fed rates", MaxEndDate: &maxEnd, Limit: 1}, nil))
	if len(got) != 1 || got[0] != "k1" {
		t.Fatalf("got=%v want=[k1]", got)
	}
}
