package recommend

import (
	"fmt"
	"math"

	"predictmax/internal/ensemble"
	"predictmax/internal/market"
	"predictmax/internal/risk"
)

// Policy holds the decision thresholds. Edge thresholds are in percentage points.
type Policy struct {
	MaxOverallRisk     float64
	MinEdgePct         float64
	MinConfidence      float64
	ThinBookMinEdgePct float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxOverallRisk:     0.7,
		MinEdgePct:         3,
		MinConfidence:      0.55,
		ThinBookMinEdgePct: 8,
	}
}

// Decision is the action chosen for one market. Side is empty iff Action is WAIT.
type Decision struct {
	Action     market.Action `json:"action"`
	Side       market.Side   `json:"side,omitempty"`
	Confidence float64       `json:"confidence"`
	WaitReason string        `json:"wait_reason,omitempty"`
}

// Wait is a WAIT decision carrying reason.
func Wait(confidence float64, reason string) Decision {
	return Decision{Action: market.ActionWait, Confidence: confidence, WaitReason: reason}
}

// Decide applies the policy to an analysis and its risk assessment.
func Decide(p Policy, a ensemble.Analysis, as risk.Assessment) Decision {
	edgePct := math.Abs(a.EdgePct())
	wait := func(reason string) Decision { return Wait(a.Confidence, reason) }
	switch {
	case as.OverallRisk > p.MaxOverallRisk:
		return wait(fmt.Sprintf("overall risk %.2f exceeds %.2f", as.OverallRisk, p.MaxOverallRisk))
	case edgePct < p.MinEdgePct:
		return wait(fmt.Sprintf("edge %.1f pts below %.1f", edgePct, p.MinEdgePct))
	case a.Confidence < p.MinConfidence:
		return wait(fmt.Sprintf("confidence %.2f below %.2f", a.Confidence, p.MinConfidence))
	case as.Liquidity.Level == risk.LevelHigh && edgePct < p.ThinBookMinEdgePct:
		return wait(fmt.Sprintf("thin book needs edge of %.1f pts, have %.1f", p.ThinBookMinEdgePct, edgePct))
	}
	side := market.SideYes
	if a.Edge < 0 {
		side = market.SideNo
	}
	return Decision{
		Action:     market.ActionBuy,
		Side:       side,
		Confidence: a.Confidence * (1 - as.OverallRisk),
	}
}
