// Package scanner finds the best opportunity across many markets with a cheap
// screen followed by bounded exact analysis.
package scanner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"predictmax/internal/apperr"
	"predictmax/internal/ensemble"
	"predictmax/internal/market"
	"predictmax/internal/recommend"
)

const (
	// MaxTopK bounds concurrent deep analyses.
	MaxTopK             = 10
	DefaultAlternatives = 2
)

// Fallback names the path that produced a result.
type Fallback string

const (
	FallbackNone         Fallback = ""
	FallbackNoCandidates Fallback = "no_quick_candidates"
	FallbackNoActionable Fallback = "no_actionable"
	FallbackDeepFailed   Fallback = "deep_failed"
)

type Candidate struct {
	Market        market.UnifiedMarket `json:"market"`
	Action        market.Action        `json:"action"`
	Side          market.Side          `json:"side,omitempty"`
	Edge          float64              `json:"edge"`
	Confidence    float64              `json:"confidence"`
	ExpectedValue float64              `json:"expected_value"`
	WaitReason    string               `json:"wait_reason,omitempty"`
}

type Result struct {
	BestMarket     market.UnifiedMarket          `json:"best_market"`
	Recommendation recommend.TradeRecommendation `json:"recommendation"`
	Alternatives   []Candidate                   `json:"alternatives"`
	Scanned        int                           `json:"scanned"`
	QuickPassed    int                           `json:"quick_passed"`
	DeepEvaluated  int                           `json:"deep_evaluated"`
	Actionable     int                           `json:"actionable"`
	Fallback       Fallback                      `json:"fallback,omitempty"`
}

type Scanner struct {
	Quick        QuickScorer
	Deep         DeepScorer
	Engine       *recommend.Engine
	TopK         int
	Alternatives int
	Logger       *zap.Logger
}

// FindBest returns a result for any non-empty input. Per-market failures in
// the deep stage exclude that market only.
func (s *Scanner) FindBest(ctx context.Context, markets []market.UnifiedMarket, bankroll decimal.Decimal) (Result, error) {
	if len(markets) == 0 {
		return Result{}, apperr.Wrap(apperr.ErrNoMarkets, "find_best", nil)
	}
	started := time.Now()
	res := Result{Scanned: len(markets), Alternatives: []Candidate{}}

	survivors := s.screen(markets)
	res.QuickPassed = len(survivors)

	if len(survivors) == 0 {
		res.Fallback = FallbackNoCandidates
		m := byVolume(markets)[0]
		ev := s.evaluate(ctx, m)
		ev.Decision = recommend.Wait(ev.Analysis.Confidence, "no market passed the quick screen")
		res.BestMarket = m
		res.Recommendation = s.recommend(ctx, ev, bankroll)
		s.logResult(res, started)
		return res, nil
	}

	evals := s.deepAll(ctx, survivors)
	res.DeepEvaluated = len(evals)
	if len(evals) == 0 {
		res.Fallback = FallbackDeepFailed
		m := survivors[0]
		ev := s.consensusOnly(m)
		ev.Decision = recommend.Wait(ev.Analysis.Confidence, "exact analysis failed for every candidate")
		res.BestMarket = m
		res.Recommendation = s.recommend(ctx, ev, bankroll)
		s.logResult(res, started)
		return res, nil
	}

	var actionable []Evaluation
	for _, ev := range evals {
		if ev.Decision.Action != market.ActionWait {
			actionable = append(actionable, ev)
		}
	}
	res.Actionable = len(actionable)

	ranked := actionable
	if len(actionable) > 0 {
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].ExpectedValue != ranked[j].ExpectedValue {
				return ranked[i].ExpectedValue > ranked[j].ExpectedValue
			}
			return ranked[i].Market.Liquidity.Volume24h > ranked[j].Market.Liquidity.Volume24h
		})
	} else {
		res.Fallback = FallbackNoActionable
		ranked = evals
		sort.SliceStable(ranked, func(i, j int) bool {
			return math.Abs(ranked[i].Analysis.Edge) > math.Abs(ranked[j].Analysis.Edge)
		})
	}

	best := ranked[0]
	res.BestMarket = best.Market
	res.Recommendation = s.recommend(ctx, best, bankroll)
	for _, ev := range ranked[1:min(len(ranked), 1+s.alternatives())] {
		res.Alternatives = append(res.Alternatives, candidate(ev))
	}
	s.logResult(res, started)
	return res, nil
}

// screen keeps quick-BUY markets, busiest first, capped at K.
func (s *Scanner) screen(markets []market.UnifiedMarket) []market.UnifiedMarket {
	var out []market.UnifiedMarket
	for _, m := range markets {
		if s.Quick.Quick(m).Actionable() {
			out = append(out, m)
		}
	}
	out = byVolume(out)
	if k := s.topK(); len(out) > k {
		out = out[:k]
	}
	return out
}

func (s *Scanner) deepAll(ctx context.Context, survivors []market.UnifiedMarket) []Evaluation {
	results := make([]*Evaluation, len(survivors))
	// Failures exclude a single market and never cancel its siblings.
	var g errgroup.Group
	g.SetLimit(s.topK())
	for i, m := range survivors {
		g.Go(func() error {
			ev, err := s.safeDeep(ctx, m)
			if err != nil {
				if s.Logger != nil {
					s.Logger.Debug("scanner: market excluded", zap.String("market_id", m.ID), zap.Error(err))
				}
				return nil
			}
			results[i] = &ev
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Evaluation, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (s *Scanner) safeDeep(ctx context.Context, m market.UnifiedMarket) (ev Evaluation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deep analysis panic: %v", r)
		}
	}()
	return s.Deep.Deep(ctx, m)
}

// evaluate runs the deep stage for a fallback market, degrading to the
// consensus-only view when it fails.
func (s *Scanner) evaluate(ctx context.Context, m market.UnifiedMarket) Evaluation {
	ev, err := s.safeDeep(ctx, m)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Debug("scanner: fallback analysis degraded", zap.String("market_id", m.ID), zap.Error(err))
		}
		return s.consensusOnly(m)
	}
	return ev
}

func (s *Scanner) consensusOnly(m market.UnifiedMarket) Evaluation {
	a := ensemble.Analyze(m, nil)
	ev := Evaluation{Market: m, Analysis: a}
	if s.Engine != nil && s.Engine.Risk != nil {
		ev.Assessment = s.Engine.Risk.Assess(m)
	}
	return ev
}

func (s *Scanner) recommend(ctx context.Context, ev Evaluation, bankroll decimal.Decimal) recommend.TradeRecommendation {
	return s.Engine.RecommendDecision(ctx, ev.Market, ev.Analysis, ev.Assessment, ev.Decision, bankroll)
}

func candidate(ev Evaluation) Candidate {
	return Candidate{
		Market:        ev.Market,
		Action:        ev.Decision.Action,
		Side:          ev.Decision.Side,
		Edge:          ev.Analysis.Edge,
		Confidence:    ev.Decision.Confidence,
		ExpectedValue: ev.ExpectedValue,
		WaitReason:    ev.Decision.WaitReason,
	}
}

func byVolume(markets []market.UnifiedMarket) []market.UnifiedMarket {
	out := append([]market.UnifiedMarket(nil), markets...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Liquidity.Volume24h > out[j].Liquidity.Volume24h
	})
	return out
}

func (s *Scanner) topK() int {
	if s.TopK <= 0 || s.TopK > MaxTopK {
		return MaxTopK
	}
	return s.TopK
}

func (s *Scanner) alternatives() int {
	if s.Alternatives <= 0 {
		return DefaultAlternatives
	}
	return s.Alternatives
}

func (s *Scanner) logResult(res Result, started time.Time) {
	if s.Logger == nil {
		return
	}
	s.Logger.Info("scan complete",
		zap.Int("scanned", res.Scanned),
		zap.Int("quick_passed", res.QuickPassed),
		zap.Int("deep_evaluated", res.DeepEvaluated),
		zap.Int("actionable", res.Actionable),
		zap.String("best_market", res.BestMarket.ID),
		zap.String("action", string(res.Recommendation.Action)),
		zap.String("fallback", string(res.Fallback)),
		zap.Duration("took", time.Since(started)),
	)
}
