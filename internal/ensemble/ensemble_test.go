package ensemble

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"predictmax/internal/market"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestEvaluate_WeightedFairValue(t *testing.T) {
	a := Evaluate(0.5, []Model{
		{Name: "a", Probability: 0.6, Weight: 0.3, Confidence: 0.8},
		{Name: "b", Probability: 0.4, Weight: 0.4, Confidence: 0.5},
	})
	want := (0.6*0.24 + 0.4*0.20) / 0.44
	if !approx(a.FairValue, want, 1e-9) {
		t.Fatalf("fairValue=%v want=%v", a.FairValue, want)
	}
	if !approx(a.FairValue, 0.509, 1e-3) {
		t.Fatalf("fairValue=%v want≈0.509", a.FairValue)
	}
	// variance 0.01 -> agreement 0.9; weighted confidence 0.44/0.7
	wantConf := (0.44 / 0.7) * 0.9
	if !approx(a.Confidence, wantConf, 1e-9) {
		t.Fatalf("confidence=%v want=%v", a.Confidence, wantConf)
	}
	if a.Confidence >= 0.44/0.7 {
		t.Fatalf("confidence=%v not discounted by disagreement", a.Confidence)
	}
	if !approx(a.Edge, a.FairValue-0.5, 1e-12) {
		t.Fatalf("edge=%v", a.Edge)
	}
	if a.Summary.Dominant != "a" {
		t.Fatalf("dominant=%s want=a", a.Summary.Dominant)
	}
}

func TestEvaluate_ZeroConfidenceFallsBackToMean(t *testing.T) {
	a := Evaluate(0.5, []Model{
		{Name: "a", Probability: 1.0, Weight: 0.5, Confidence: 0},
		{Name: "b", Probability: 1.0, Weight: 0.5, Confidence: 0},
	})
	if a.FairValue != MaxFairValue {
		t.Fatalf("fairValue=%v want clamp to %v", a.FairValue, MaxFairValue)
	}
	if !a.Summary.Unweighted {
		t.Fatalf("expected unweighted fallback")
	}
	b := Evaluate(0.5, []Model{{Name: "x", Probability: 0.3}, {Name: "y", Probability: 0.5}})
	if !approx(b.FairValue, 0.4, 1e-12) {
		t.Fatalf("fairValue=%v want=0.4", b.FairValue)
	}
}

func TestEvaluate_BoundsOnHostileInput(t *testing.T) {
	inputs := [][]Model{
		{{Probability: -4, Weight: 9, Confidence: 9}},
		{{Probability: 7, Weight: -1, Confidence: 0.5}, {Probability: math.NaN(), Weight: 1, Confidence: 1}},
		{{Probability: 0, Weight: 1, Confidence: 1}},
	}
	for _, in := range inputs {
		a := Evaluate(0.5, in)
		if a.FairValue < MinFairValue || a.FairValue > MaxFairValue {
			t.Fatalf("fairValue=%v out of bounds for %+v", a.FairValue, in)
		}
		if a.Confidence < 0 || a.Confidence > MaxConfidence {
			t.Fatalf("confidence=%v out of bounds", a.Confidence)
		}
	}
}

func TestMarketConsensus_Confidence(t *testing.T) {
	cases := []struct {
		tier   market.LiquidityTier
		spread float64
		want   float64
	}{
		{market.LiquidityLow, 0.2, 0.5},
		{market.LiquidityMedium, 0.1, 0.7},
		{market.LiquidityMedium, 0.05, 0.8},
		{market.LiquidityHigh, 0.02, 0.95},
	}
	for _, tc := range cases {
		m := market.UnifiedMarket{
			Pricing:   market.Pricing{Midpoint: 0.4, Spread: tc.spread},
			Liquidity: market.Liquidity{Score: tc.tier},
		}
		got := MarketConsensus(m)
		if !approx(got.Confidence, tc.want, 1e-9) {
			t.Fatalf("tier=%s spread=%v conf=%v want=%v", tc.tier, tc.spread, got.Confidence, tc.want)
		}
		if got.Weight != ConsensusWeight || got.Probability != 0.4 {
			t.Fatalf("model=%+v", got)
		}
	}
}

type fixedProvider struct {
	name  string
	model *Model
	err   error
	panic bool
}

func (p fixedProvider) Name() string { return p.name }

func (p fixedProvider) Estimate(context.Context, market.UnifiedMarket) (*Model, error) {
	if p.panic {
		panic("boom")
	}
	return p.model, p.err
}

func TestEnsemble_DegradesOnProviderFailure(t *testing.T) {
	m := market.UnifiedMarket{
		ID:        "m",
		Pricing:   market.Pricing{Midpoint: 0.5, Spread: 0.02},
		Liquidity: market.Liquidity{Score: market.LiquidityHigh},
	}
	e := &Ensemble{Providers: []ModelProvider{
		fixedProvider{name: "ok", model: &Model{Name: "domain", Probability: 0.7, Weight: 0.4, Confidence: 0.8, Breakdown: DomainBreakdown{Domain: "sports"}}},
		fixedProvider{name: "err", err: errors.New("timeout")},
		fixedProvider{name: "empty"},
		fixedProvider{name: "panic", panic: true},
	}}
	a := e.Analyze(context.Background(), m)
	if len(a.Models) != 2 {
		t.Fatalf("models=%d want=2 (consensus + domain)", len(a.Models))
	}
	if a.Models[0].Name != ConsensusName || a.Models[1].Name != "domain" {
		t.Fatalf("order=%s,%s", a.Models[0].Name, a.Models[1].Name)
	}
	if a.FairValue <= 0.5 {
		t.Fatalf("fairValue=%v want > midpoint", a.FairValue)
	}

	none := (&Ensemble{}).Analyze(context.Background(), m)
	if len(none.Models) != 1 || none.FairValue != 0.5 {
		t.Fatalf("consensus-only analysis=%+v", none)
	}
}

func TestModel_MarshalIncludesKind(t *testing.T) {
	b, err := json.Marshal(Model{Name: "odds", Probability: 0.6, Breakdown: ExternalOddsBreakdown{Bookmakers: []string{"pinnacle"}}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"kind":"external_odds"`) || !strings.Contains(string(b), `"pinnacle"`) {
		t.Fatalf("json=%s", b)
	}
}
