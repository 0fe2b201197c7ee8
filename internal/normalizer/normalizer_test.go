package normalizer

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"predictmax/internal/apperr"
	"predictmax/internal/market"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return &Normalizer{Now: func() time.Time { return fixedNow }}
}

func mustNormalize(t *testing.T, schema Schema, payload string) market.UnifiedMarket {
	t.Helper()
	m, err := newTestNormalizer().Normalize(RawRecord{Schema: schema, Payload: json.RawMessage(payload)})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return m
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func hasWarning(m market.UnifiedMarket, w string) bool {
	for _, got := range m.DataWarnings {
		if got == w {
			return true
		}
	}
	return false
}

func TestNormalize_TwoSidedGenericHighLiquidity(t *testing.T) {
	m := mustNormalize(t, SchemaGeneric, `{
		"id": "m1", "platform": "kalshi", "question": "Will the Lakers win the NBA Finals?",
		"yes_bid": 0.40, "yes_ask": 0.42, "volume_24h": 60000, "open_interest": 150000,
		"close_time": "2026-06-01T00:00:00Z"
	}`)
	if !approx(m.Pricing.Spread, 0.02) {
		t.Fatalf("spread=%v want=0.02", m.Pricing.Spread)
	}
	if !approx(m.Pricing.Midpoint, 0.41) {
		t.Fatalf("midpoint=%v want=0.41", m.Pricing.Midpoint)
	}
	if m.Liquidity.Score != market.LiquidityHigh {
		t.Fatalf("score=%s want=HIGH", m.Liquidity.Score)
	}
	if m.Category != market.CategorySports {
		t.Fatalf("category=%s want=sports", m.Category)
	}
	if !approx(m.Pricing.NoBid, 0.58) || !approx(m.Pricing.NoAsk, 0.60) {
		t.Fatalf("no side=%v/%v want=0.58/0.60", m.Pricing.NoBid, m.Pricing.NoAsk)
	}
}

func TestNormalize_KalshiCentsAndDollars(t *testing.T) {
	m := mustNormalize(t, SchemaKalshi, `{
		"ticker": "KXBTC-26MAR01-T100000", "event_ticker": "KXBTC-26MAR01", "title": "Bitcoin above 100k on March 1?",
		"status": "active", "yes_bid": 55, "yes_ask": 57, "no_bid": 43, "no_ask": 45, "last_price": 56,
		"volume": 250000, "volume_24h": 12000, "open_interest": 40000,
		"close_time": "2026-03-01T22:00:00Z", "expiration_time": "2026-03-02T22:00:00Z"
	}`)
	if m.Platform != market.PlatformKalshi || m.ID != "KXBTC-26MAR01-T100000" {
		t.Fatalf("platform=%s id=%s", m.Platform, m.ID)
	}
	if !approx(m.Pricing.YesBid, 0.55) || !approx(m.Pricing.YesAsk, 0.57) || !approx(m.Pricing.LastPrice, 0.56) {
		t.Fatalf("pricing=%+v", m.Pricing)
	}
	if m.Market.Status != market.StatusOpen {
		t.Fatalf("status=%s want=open", m.Market.Status)
	}
	if m.Category != market.CategoryCrypto {
		t.Fatalf("category=%s want=crypto", m.Category)
	}

	dollars := mustNormalize(t, SchemaKalshi, `{
		"ticker": "T", "title": "x", "yes_bid": 55, "yes_ask": 57,
		"yes_bid_dollars": "0.5525", "yes_ask_dollars": "0.5650", "close_time": "2026-03-01T22:00:00Z"
	}`)
	if !approx(dollars.Pricing.YesBid, 0.5525) || !approx(dollars.Pricing.YesAsk, 0.565) {
		t.Fatalf("dollar pricing=%+v", dollars.Pricing)
	}
}

func TestNormalize_PolymarketSingleSided(t *testing.T) {
	m := mustNormalize(t, SchemaPolymarket, `{
		"id": "512345", "question": "Will it rain in NYC on Friday?", "slug": "rain-nyc",
		"outcomes": "[\"Yes\", \"No\"]", "outcomePrices": "[\"0.30\", \"0.66\"]",
		"volume24hr": "2500.5", "volume": 90000, "liquidity": "1500", "endDate": "2026-03-06T00:00:00Z",
		"active": true, "closed": false
	}`)
	// yes=0.30, implied yes from no=0.34
	if !approx(m.Pricing.Spread, 0.04) {
		t.Fatalf("spread=%v want=0.04", m.Pricing.Spread)
	}
	if !approx(m.Pricing.Midpoint, 0.32) {
		t.Fatalf("midpoint=%v want=0.32", m.Pricing.Midpoint)
	}
	if len(m.Market.Outcomes) != 2 || m.Market.Outcomes[0] != "Yes" {
		t.Fatalf("outcomes=%v", m.Market.Outcomes)
	}
	if m.Category != market.CategoryWeather {
		t.Fatalf("category=%s want=weather", m.Category)
	}
	if m.Liquidity.Score != market.LiquidityMedium {
		t.Fatalf("score=%s want=MEDIUM", m.Liquidity.Score)
	}
}

func TestNormalize_PolymarketBookWinsOverOutcomePrices(t *testing.T) {
	m := mustNormalize(t, SchemaPolymarket, `{
		"id": "1", "question": "q", "outcomePrices": ["0.5", "0.5"], "bestBid": 0.61, "bestAsk": 0.63,
		"endDate": "2026-04-01T00:00:00Z", "closed": true, "umaResolutionStatus": "resolved"
	}`)
	if !approx(m.Pricing.Midpoint, 0.62) {
		t.Fatalf("midpoint=%v want=0.62", m.Pricing.Midpoint)
	}
	if m.Market.Status != market.StatusSettled {
		t.Fatalf("status=%s want=settled", m.Market.Status)
	}
}

func TestNormalize_NonFiniteNumbersDefault(t *testing.T) {
	poly := mustNormalize(t, SchemaPolymarket, `{
		"id": "nf", "question": "Will it snow in Denver?", "outcomePrices": "[\"0.40\", \"0.60\"]",
		"volume24hr": "NaN", "volume": "Infinity", "liquidity": "-Inf", "endDate": "2026-03-06T00:00:00Z"
	}`)
	kalshi := mustNormalize(t, SchemaKalshi, `{
		"ticker": "NF", "title": "x", "yes_bid": 40, "yes_ask": 42,
		"volume": "Infinity", "volume_24h": "NaN", "open_interest": "inf", "close_time": "2026-03-01T22:00:00Z"
	}`)
	for _, m := range []market.UnifiedMarket{poly, kalshi} {
		l := m.Liquidity
		if l.Volume24h != 0 || l.TotalVolume != 0 || l.OpenInterest != 0 {
			t.Fatalf("%s: liquidity=%+v want zeros", m.ID, l)
		}
		if l.Score != market.LiquidityLow {
			t.Fatalf("%s: score=%s want=LOW", m.ID, l.Score)
		}
		if _, err := json.Marshal(m); err != nil {
			t.Fatalf("%s: marshal: %v", m.ID, err)
		}
	}
}

func TestNormalize_InvalidDatesDefaultToHorizon(t *testing.T) {
	m := mustNormalize(t, SchemaGeneric, `{"id": "d", "question": "q", "yes_price": 0.5, "close_time": "not-a-date", "expiration_time": "garbage"}`)
	want := fixedNow.Add(DefaultHorizon)
	if !m.Market.CloseTime.Equal(want) || !m.Market.ExpirationTime.Equal(want) {
		t.Fatalf("close=%v exp=%v want=%v", m.Market.CloseTime, m.Market.ExpirationTime, want)
	}
	if !hasWarning(m, WarnCloseTimeDefaulted) || !hasWarning(m, WarnExpirationTimeDefaulted) {
		t.Fatalf("warnings=%v", m.DataWarnings)
	}
}

func TestNormalize_MissingExpirationFollowsClose(t *testing.T) {
	m := mustNormalize(t, SchemaGeneric, `{"id": "d", "question": "q", "yes_price": 0.5, "close_time": "2026-05-01"}`)
	if !m.Market.ExpirationTime.Equal(m.Market.CloseTime) {
		t.Fatalf("exp=%v close=%v", m.Market.ExpirationTime, m.Market.CloseTime)
	}
	if hasWarning(m, WarnExpirationTimeDefaulted) {
		t.Fatalf("unexpected warning: %v", m.DataWarnings)
	}
}

func TestNormalize_GenericInfersCents(t *testing.T) {
	m := mustNormalize(t, SchemaGeneric, `{"id": "c", "question": "q", "yes_bid": 20, "yes_ask": 24, "close_time": "2026-05-01"}`)
	if !approx(m.Pricing.Midpoint, 0.22) || !hasWarning(m, WarnPriceUnitInferred) {
		t.Fatalf("midpoint=%v warnings=%v", m.Pricing.Midpoint, m.DataWarnings)
	}
}

func TestNormalize_BoundsHoldForHostileInput(t *testing.T) {
	payloads := []string{
		`{"id": "a", "question": "q", "yes_bid": -3, "yes_ask": 7}`,
		`{"id": "b", "question": "q", "yes_bid": 0.9, "yes_ask": 0.1}`,
		`{"id": "c", "question": "q", "yes_price": 1.5, "no_price": -0.2, "price_unit": "probability"}`,
		`{"id": "d", "question": "q"}`,
		`{"id": "e", "question": "q", "last_price": "0.77"}`,
	}
	for _, p := range payloads {
		m := mustNormalize(t, SchemaGeneric, p)
		pr := m.Pricing
		for _, v := range []float64{pr.YesBid, pr.YesAsk, pr.NoBid, pr.NoAsk, pr.Midpoint} {
			if v < 0 || v > 1 {
				t.Fatalf("payload=%s pricing out of range: %+v", p, pr)
			}
		}
		if pr.Spread < 0 {
			t.Fatalf("payload=%s spread=%v", p, pr.Spread)
		}
	}
}

func TestNormalize_Errors(t *testing.T) {
	n := newTestNormalizer()
	if _, err := n.Normalize(RawRecord{Schema: "manifold", Payload: json.RawMessage(`{}`)}); !errors.Is(err, apperr.ErrData) {
		t.Fatalf("err=%v want ErrData", err)
	}
	if _, err := n.Normalize(RawRecord{Schema: SchemaKalshi, Payload: json.RawMessage(`[1,2]`)}); !errors.Is(err, apperr.ErrData) {
		t.Fatalf("err=%v want ErrData", err)
	}
	got := n.NormalizeAll([]RawRecord{
		{Schema: SchemaKalshi, Payload: json.RawMessage(`{"ticker": "A", "title": "a"}`)},
		{Schema: SchemaKalshi, Payload: json.RawMessage(`not json`)},
	})
	if len(got) != 1 || got[0].ID != "A" {
		t.Fatalf("NormalizeAll=%v", got)
	}
}

func TestLiquidityScore(t *testing.T) {
	cases := []struct {
		vol, depth, spread float64
		want               market.LiquidityTier
	}{
		{60000, 150000, 0.02, market.LiquidityHigh},
		{10000, 0, 0.05, market.LiquidityHigh},
		{10000, 10000, 0.30, market.LiquidityHigh},
		{10000, 0, 0.08, market.LiquidityMedium},
		{1000, 0, 0.10, market.LiquidityMedium},
		{1000, 500, 0.20, market.LiquidityLow},
		{999, 1e9, 0, market.LiquidityLow},
	}
	for _, tc := range cases {
		if got := LiquidityScore(tc.vol, tc.depth, tc.spread); got != tc.want {
			t.Fatalf("LiquidityScore(%v,%v,%v)=%s want=%s", tc.vol, tc.depth, tc.spread, got, tc.want)
		}
	}
}

func TestLiquidityScore_Monotonic(t *testing.T) {
	vols := []float64{0, 500, 1000, 5000, 10000, 50000}
	spreads := []float64{0.01, 0.05, 0.08, 0.10, 0.2}
	for _, s := range spreads {
		prev := 0
		for _, v := range vols {
			r := LiquidityScore(v, 0, s).Rank()
			if r < prev {
				t.Fatalf("tier decreased with volume at spread=%v vol=%v", s, v)
			}
			prev = r
		}
	}
	for _, v := range vols {
		prev := 4
		for _, s := range spreads {
			r := LiquidityScore(v, 0, s).Rank()
			if r > prev {
				t.Fatalf("tier increased with spread at vol=%v spread=%v", v, s)
			}
			prev = r
		}
	}
}

func TestCategorize_Priority(t *testing.T) {
	cases := []struct {
		title, source string
		want          market.Category
	}{
		{"Will it snow in Denver?", "Crypto", market.CategoryCrypto},
		{"Will Bitcoin hit 200k?", "", market.CategoryCrypto},
		{"Fed rate cut in June?", "", market.CategoryEconomics},
		{"Who wins the presidential election?", "", market.CategoryPolitics},
		{"Will X happen?", "Financials", market.CategoryFinance},
		{"Will X happen?", "science", market.CategoryScience},
		{"Will X happen?", "Sundry", market.CategoryOther},
		{"Will the S&P 500 close green?", "", market.CategoryFinance},
	}
	for _, tc := range cases {
		if got := Categorize(tc.title, tc.source); got != tc.want {
			t.Fatalf("Categorize(%q,%q)=%s want=%s", tc.title, tc.source, got, tc.want)
		}
	}
}

func TestApplyTick_Reprices(t *testing.T) {
	m := mustNormalize(t, SchemaGeneric, `{"id": "t", "question": "q", "yes_bid": 0.40, "yes_ask": 0.42, "volume_24h": 60000, "open_interest": 150000, "close_time": "2026-05-01"}`)
	got := ApplyTick(m, Tick{MarketID: "t", YesBid: 0.30, YesAsk: 0.50})
	if !approx(got.Pricing.Spread, 0.2) || !approx(got.Pricing.Midpoint, 0.4) {
		t.Fatalf("pricing=%+v", got.Pricing)
	}
	if got.Liquidity.Score != market.LiquidityHigh {
		t.Fatalf("score=%s want=HIGH (open interest depth)", got.Liquidity.Score)
	}
	if m.Pricing.Spread == got.Pricing.Spread {
		t.Fatalf("input mutated or tick ignored")
	}
}
