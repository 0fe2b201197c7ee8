package provider

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"predictmax/internal/apperr"
	"predictmax/internal/cache"
	"predictmax/internal/config"
	"predictmax/internal/ensemble"
	"predictmax/internal/httpx"
	"predictmax/internal/market"
)

func testReference() *StaticReference {
	return NewStaticReference([]Team{
		{Name: "Los Angeles Lakers", League: "nba", Aliases: []string{"lakers"}, Rating: 1600, Games: 100},
		{Name: "Boston Celtics", League: "nba", Aliases: []string{"celtics"}, Rating: 1500, Games: 20},
	}, map[market.Category]float64{market.CategoryPolitics: 0.4})
}

func sportsMarket(q string) market.UnifiedMarket {
	return market.UnifiedMarket{ID: "s1", Question: q, Category: market.CategorySports, Pricing: market.Pricing{Midpoint: 0.5}}
}

func TestDefaultReferenceLoads(t *testing.T) {
	ref, err := LoadReferenceData("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := ref.Team("chiefs"); !ok {
		t.Fatalf("alias lookup failed")
	}
	if r, ok := ref.BaseRate(market.CategorySports); !ok || r != 0.5 {
		t.Fatalf("sports base rate=%v ok=%v", r, ok)
	}
	if _, err := ParseReferenceData([]byte("base_rates:\n  astrology: 0.5\n")); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("unknown category err=%v", err)
	}
}

func TestFindTeams_OrderOfMention(t *testing.T) {
	got := FindTeams(testReference(), "Will the Celtics beat the Lakers on Friday?")
	if len(got) != 2 || got[0].Name != "Boston Celtics" {
		t.Fatalf("teams=%v", got)
	}
	if len(FindTeams(testReference(), "Will the Lakersfans rally?")) != 0 {
		t.Fatalf("partial word must not match")
	}
}

func TestRankingModel(t *testing.T) {
	r := &RankingModel{Reference: testReference(), Weight: 0.35}
	m, err := r.Estimate(context.Background(), sportsMarket("Will the Lakers beat the Celtics?"))
	if err != nil || m == nil {
		t.Fatalf("model=%v err=%v", m, err)
	}
	want := 1 / (1 + math.Pow(10, -100.0/400))
	if math.Abs(m.Probability-want) > 1e-12 {
		t.Fatalf("p=%v want=%v", m.Probability, want)
	}
	// sample 20 -> 0.1, gap 100 -> 0.1
	if math.Abs(m.Confidence-0.55) > 1e-12 {
		t.Fatalf("confidence=%v want=0.55", m.Confidence)
	}
	bd, ok := m.Breakdown.(ensemble.DomainBreakdown)
	if !ok || bd.SampleSize != 20 || bd.RatingGap != 100 {
		t.Fatalf("breakdown=%+v", m.Breakdown)
	}

	again, _ := r.Estimate(context.Background(), sportsMarket("Will the Lakers beat the Celtics?"))
	if again.Probability != m.Probability {
		t.Fatalf("estimate must be deterministic")
	}
	if m, _ := r.Estimate(context.Background(), sportsMarket("Will the Lakers win the title?")); m != nil {
		t.Fatalf("single team should not estimate")
	}
}

func TestHistoricalBaseline(t *testing.T) {
	h := &HistoricalBaseline{Reference: testReference(), Weight: 0.15}
	m := market.UnifiedMarket{Category: market.CategoryPolitics, Pricing: market.Pricing{Midpoint: 0.8}, Liquidity: market.Liquidity{Score: market.LiquidityLow}}
	got, _ := h.Estimate(context.Background(), m)
	if got == nil || math.Abs(got.Probability-(0.65*0.8+0.35*0.4)) > 1e-12 {
		t.Fatalf("model=%+v", got)
	}
	m.Category = market.CategoryCrypto
	if got, _ := h.Estimate(context.Background(), m); got != nil {
		t.Fatalf("no base rate should skip")
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry().Register(market.CategorySports, &RankingModel{Reference: testReference(), Weight: 0.35})
	m, _ := reg.Estimate(context.Background(), sportsMarket("Lakers vs Celtics: will the Lakers win?"))
	if m == nil || m.Name != RankingName {
		t.Fatalf("model=%v", m)
	}
	pol := sportsMarket("Lakers vs Celtics")
	pol.Category = market.CategoryPolitics
	if m, _ := reg.Estimate(context.Background(), pol); m != nil {
		t.Fatalf("unregistered category should skip")
	}
}

func oddsEvents() []OddsEvent {
	return []OddsEvent{{
		ID: "ev1", SportKey: "basketball_nba", HomeTeam: "Boston Celtics", AwayTeam: "Los Angeles Lakers",
		Bookmakers: []OddsBookmaker{
			{Key: "a", Markets: []OddsMarket{{Key: "h2h", Outcomes: []OddsOutcome{{Name: "Boston Celtics", Price: 1.5}, {Name: "Los Angeles Lakers", Price: 2.5}}}}},
			{Key: "b", Markets: []OddsMarket{{Key: "h2h", Outcomes: []OddsOutcome{{Name: "Boston Celtics", Price: 1.6}, {Name: "Los Angeles Lakers", Price: 2.4}}}}},
		},
	}}
}

type stubOdds struct {
	events []OddsEvent
	err    error
}

func (s stubOdds) Events(context.Context, string) ([]OddsEvent, error) { return s.events, s.err }

func TestExternalOdds_EstimateAndAttach(t *testing.T) {
	o := &ExternalOdds{Source: stubOdds{events: oddsEvents()}, Sports: []string{"basketball_nba"}, Weight: 0.4}
	m := sportsMarket("Will the Lakers beat the Celtics?")

	model, err := o.Estimate(context.Background(), m)
	if err != nil || model == nil {
		t.Fatalf("model=%v err=%v", model, err)
	}
	// Lakers de-vigged: 0.4/(0.4+0.6667)=0.375 and 0.41667/(0.41667+0.625)=0.4
	if math.Abs(model.Probability-(0.375+0.4)/2) > 1e-9 {
		t.Fatalf("p=%v", model.Probability)
	}
	bd := model.Breakdown.(ensemble.ExternalOddsBreakdown)
	if len(bd.Bookmakers) != 2 || bd.Min >= bd.Max {
		t.Fatalf("breakdown=%+v", bd)
	}

	enriched := o.Attach(context.Background(), m)
	p, ok := enriched.ImpliedOdds()
	if !ok || math.Abs(p-model.Probability) > 1e-12 {
		t.Fatalf("implied=%v ok=%v", p, ok)
	}
	if m.Domain != nil {
		t.Fatalf("attach must not mutate the input")
	}
}

func TestExternalOdds_Degrades(t *testing.T) {
	o := &ExternalOdds{Source: stubOdds{err: errors.New("quota")}, Sports: []string{"basketball_nba"}}
	_, err := o.Estimate(context.Background(), sportsMarket("Will the Lakers beat the Celtics?"))
	if !errors.Is(err, apperr.ErrEnrichmentUnavailable) {
		t.Fatalf("err=%v want enrichment unavailable", err)
	}
	m := o.Attach(context.Background(), sportsMarket("Will the Lakers beat the Celtics?"))
	if _, ok := m.ImpliedOdds(); ok {
		t.Fatalf("failed lookup should leave market unchanged")
	}
	ok := &ExternalOdds{Source: stubOdds{events: oddsEvents()}, Sports: []string{"x"}}
	if model, err := ok.Estimate(context.Background(), sportsMarket("Will the Knicks beat the Heat?")); model != nil || err != nil {
		t.Fatalf("unmatched market model=%v err=%v", model, err)
	}
}

func TestOddsClient_CachesBySport(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/sports/basketball_nba/odds" || r.URL.Query().Get("apiKey") != "k" || r.URL.Query().Get("markets") != "h2h" {
			http.Error(w, r.URL.String(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(oddsEvents())
	}))
	defer srv.Close()

	c := &OddsClient{
		HTTP:     httpx.New(httpx.Options{BaseURL: srv.URL, RequestsPerSec: 100}),
		APIKey:   "k",
		Regions:  "us",
		Cache:    cache.NewMemoryStore(),
		CacheTTL: time.Minute,
	}
	for i := 0; i < 2; i++ {
		evs, err := c.Events(context.Background(), "basketball_nba")
		if err != nil || len(evs) != 1 || len(evs[0].Bookmakers) != 2 {
			t.Fatalf("events=%v err=%v", evs, err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("calls=%d want=1", calls.Load())
	}
}

func TestBuild(t *testing.T) {
	cfg := config.Config{
		Ensemble: config.EnsembleConfig{DomainWeight: 0.35, ExternalOddsWeight: 0.4, HistoricalWeight: 0.15},
		OddsAPI:  config.OddsAPIConfig{Enabled: true, APIKeyEnv: "PM_TEST_ODDS_KEY_UNSET"},
	}
	t.Setenv("PM_TEST_ODDS_KEY_UNSET", "")
	set, err := Build(cfg, cache.NewMemoryStore(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if set.Odds != nil || len(set.Providers) != 2 {
		t.Fatalf("odds=%v providers=%d", set.Odds, len(set.Providers))
	}

	t.Setenv("PM_TEST_ODDS_KEY_UNSET", "secret")
	set, _ = Build(cfg, cache.NewMemoryStore(), nil)
	if set.Odds == nil || len(set.Providers) != 3 {
		t.Fatalf("odds should be wired with a key")
	}
}
