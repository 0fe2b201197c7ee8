package recommend

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"predictmax/internal/apperr"
	"predictmax/internal/ensemble"
	"predictmax/internal/market"
	"predictmax/internal/risk"
)

// ReasoningInput is everything a text generator may explain.
type ReasoningInput struct {
	Market     market.UnifiedMarket
	Analysis   ensemble.Analysis
	Assessment risk.Assessment
	Decision   Decision
}

// ReasoningGenerator writes the narrative for a recommendation.
type ReasoningGenerator interface {
	Name() string
	Generate(ctx context.Context, in ReasoningInput) (string, error)
}

type TradeRecommendation struct {
	MarketID        string        `json:"market_id"`
	Question        string        `json:"question"`
	Action          market.Action `json:"action"`
	Side            market.Side   `json:"side,omitempty"`
	Confidence      float64       `json:"confidence"`
	Edge            float64       `json:"edge"`
	FairValue       float64       `json:"fair_value"`
	MarketPrice     float64       `json:"market_price"`
	ExpectedValue   float64       `json:"expected_value"`
	Sizing          risk.Sizing   `json:"sizing"`
	Pricing         PriceTargets  `json:"pricing"`
	Timing          Timing        `json:"timing"`
	Reasoning       string        `json:"reasoning"`
	ReasoningSource string        `json:"reasoning_source"`
	KeyFactors      []string      `json:"key_factors"`
	Risks           []string      `json:"risks"`
	WaitReason      string        `json:"wait_reason,omitempty"`
}

type Engine struct {
	Policy   Policy
	Risk     *risk.Assessor
	Reasoner ReasoningGenerator
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewEngine(assessor *risk.Assessor, reasoner ReasoningGenerator, logger *zap.Logger) *Engine {
	return &Engine{Policy: DefaultPolicy(), Risk: assessor, Reasoner: reasoner, Logger: logger}
}

func (e *Engine) Decide(a ensemble.Analysis, as risk.Assessment, m market.UnifiedMarket) Decision {
	return Decide(e.policy(), a, as)
}

// Recommend builds the full recommendation. It never fails: reasoning falls
// back to a deterministic template.
func (e *Engine) Recommend(ctx context.Context, m market.UnifiedMarket, a ensemble.Analysis, as risk.Assessment, bankroll decimal.Decimal) TradeRecommendation {
	return e.RecommendDecision(ctx, m, a, as, e.Decide(a, as, m), bankroll)
}

// RecommendDecision builds the recommendation for an already-made decision.
func (e *Engine) RecommendDecision(ctx context.Context, m market.UnifiedMarket, a ensemble.Analysis, as risk.Assessment, d Decision, bankroll decimal.Decimal) TradeRecommendation {
	days := m.DaysToExpiry(e.now())
	edgePct := a.EdgePct()

	side := d.Side
	if side == "" {
		side = market.SideYes
		if a.Edge < 0 {
			side = market.SideNo
		}
	}
	actionable := d.Action != market.ActionWait

	var sizing risk.Sizing
	if actionable {
		sizing = e.Risk.SizePosition(as, a.Edge, d.Confidence, bankroll)
	} else {
		sizing = risk.Sizing{
			Recommended:      decimal.Zero,
			Maximum:          decimal.Zero,
			ConservativeUnit: decimal.Zero,
			LiquidityCap:     decimal.Zero,
			Bankroll:         bankroll,
		}
	}

	rec := TradeRecommendation{
		MarketID:      m.ID,
		Question:      m.Question,
		Action:        d.Action,
		Side:          d.Side,
		Confidence:    d.Confidence,
		Edge:          a.Edge,
		FairValue:     a.FairValue,
		MarketPrice:   a.Midpoint,
		ExpectedValue: ExpectedValue(a.Edge, d.Confidence),
		Sizing:        sizing,
		Pricing:       Prices(m, side, actionable),
		Timing:        Timings(math.Abs(edgePct), days),
		KeyFactors:    keyFactors(m, edgePct, a.Confidence, a.Summary.Dominant, days),
		Risks:         risks(m, as),
		WaitReason:    d.WaitReason,
	}
	rec.Reasoning, rec.ReasoningSource = e.reasoning(ctx, ReasoningInput{Market: m, Analysis: a, Assessment: as, Decision: d})
	return rec
}

// ExpectedValue ranks actionable opportunities.
func ExpectedValue(edge, confidence float64) float64 {
	return math.Abs(edge) * confidence
}

func (e *Engine) reasoning(ctx context.Context, in ReasoningInput) (string, string) {
	if e.Reasoner != nil {
		text, err := e.Reasoner.Generate(ctx, in)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text), e.Reasoner.Name()
		}
		if err == nil {
			err = fmt.Errorf("empty text")
		}
		if e.Logger != nil {
			e.Logger.Warn("recommend: reasoning fallback",
				zap.String("market_id", in.Market.ID),
				zap.String("generator", e.Reasoner.Name()),
				zap.Error(apperr.Reasoning("generate", err)),
			)
		}
	}
	return TemplateReasoning(in), TemplateSource
}

func (e *Engine) policy() Policy {
	if e == nil || e.Policy == (Policy{}) {
		return DefaultPolicy()
	}
	return e.Policy
}

func (e *Engine) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}
