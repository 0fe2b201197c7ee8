package reasoning

import (
	"fmt"
	"strings"

	"predictmax/internal/recommend"
)

const systemPrompt = "You are a prediction-market analyst. Explain a trade decision to a retail trader " +
	"in at most four sentences. Use only the figures provided. Do not invent news, odds or prices."

// Prompt renders the decision inputs as plain text for a chat model.
func Prompt(in recommend.ReasoningInput) string {
	m, a, as, d := in.Market, in.Analysis, in.Assessment, in.Decision
	var b strings.Builder
	fmt.Fprintf(&b, "Market: %s\n", m.Question)
	fmt.Fprintf(&b, "Platform: %s, category: %s, liquidity: %s\n", m.Platform, m.Category, m.Liquidity.Score)
	fmt.Fprintf(&b, "Market price (YES midpoint): %.3f, spread: %.3f\n", m.Pricing.Midpoint, m.Pricing.Spread)
	fmt.Fprintf(&b, "Fair value: %.3f, edge: %+.1f pts, confidence: %.2f\n", a.FairValue, a.EdgePct(), a.Confidence)
	for _, model := range a.Models {
		fmt.Fprintf(&b, "- model %s: p=%.3f weight=%.2f confidence=%.2f\n",
			model.Name, model.Probability, model.Weight, model.Confidence)
	}
	fmt.Fprintf(&b, "Overall risk: %.2f\n", as.OverallRisk)
	if len(as.RiskFactors) > 0 {
		fmt.Fprintf(&b, "Risk factors: %s\n", strings.Join(as.RiskFactors, "; "))
	}
	if d.Side != "" {
		fmt.Fprintf(&b, "Decision: %s %s\n", d.Action, d.Side)
	} else {
		fmt.Fprintf(&b, "Decision: %s (%s)\n", d.Action, d.WaitReason)
	}
	return b.String()
}
