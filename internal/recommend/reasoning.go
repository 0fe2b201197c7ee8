package recommend

import (
	"context"
	"fmt"
	"strings"

	"predictmax/internal/market"
)

const TemplateSource = "template"

// Template is a ReasoningGenerator that never fails.
type Template struct{}

func (Template) Name() string { return TemplateSource }

func (Template) Generate(_ context.Context, in ReasoningInput) (string, error) {
	return TemplateReasoning(in), nil
}

// TemplateReasoning states the action, the edge and fair value against the market price.
func TemplateReasoning(in ReasoningInput) string {
	a := in.Analysis
	var b strings.Builder
	if in.Decision.Action == market.ActionWait {
		b.WriteString("WAIT")
		if in.Decision.WaitReason != "" {
			b.WriteString(": ")
			b.WriteString(in.Decision.WaitReason)
		}
		b.WriteString(". ")
	} else {
		fmt.Fprintf(&b, "%s %s. ", in.Decision.Action, in.Decision.Side)
	}
	fmt.Fprintf(&b, "Fair value %.1f%% vs market %.1f%% (edge %+.1f pts) from %d model(s), confidence %.0f%%.",
		a.FairValue*100, a.Midpoint*100, a.EdgePct(), len(a.Models), a.Confidence*100)
	if n := len(in.Assessment.RiskFactors); n > 0 {
		fmt.Fprintf(&b, " %d high-risk factor(s): %s.", n, strings.Join(in.Assessment.RiskFactors, "; "))
	} else {
		fmt.Fprintf(&b, " Overall risk %.2f.", in.Assessment.OverallRisk)
	}
	return b.String()
}

func formatf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
