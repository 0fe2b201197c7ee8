package ensemble

import (
	"math"

	"predictmax/internal/market"
)

const (
	MinFairValue  = 0.01
	MaxFairValue  = 0.99
	MaxConfidence = 0.95
	// MinAgreement floors the disagreement discount.
	MinAgreement = 0.5
)

type Summary struct {
	ModelCount      int     `json:"model_count"`
	Variance        float64 `json:"variance"`
	AgreementFactor float64 `json:"agreement_factor"`
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
	// Dominant is the model with the largest weight*confidence.
	Dominant string `json:"dominant"`
	// Unweighted is set when every weight*confidence was zero.
	Unweighted bool `json:"unweighted"`
}

type Analysis struct {
	FairValue  float64 `json:"fair_value"`
	Midpoint   float64 `json:"midpoint"`
	Edge       float64 `json:"edge"`
	Confidence float64 `json:"confidence"`
	Models     []Model `json:"models"`
	Summary    Summary `json:"summary"`
}

// EdgePct is the edge in percentage points.
func (a Analysis) EdgePct() float64 {
	return a.Edge * 100
}

// Analyze evaluates the market's own consensus plus any extra models.
func Analyze(m market.UnifiedMarket, extra []Model) Analysis {
	models := make([]Model, 0, len(extra)+1)
	models = append(models, MarketConsensus(m))
	models = append(models, extra...)
	return Evaluate(m.Pricing.Midpoint, models)
}

// Evaluate combines models into a fair value weighted by weight*confidence.
// When every effective weight is zero the plain mean is used. Confidence is the
// weight-averaged model confidence discounted by cross-model variance.
func Evaluate(midpoint float64, models []Model) Analysis {
	midpoint = market.Clamp01(midpoint)
	if len(models) == 0 {
		fv := market.Clamp(midpoint, MinFairValue, MaxFairValue)
		return Analysis{FairValue: fv, Midpoint: midpoint, Edge: fv - midpoint}
	}

	clean := make([]Model, len(models))
	probs := make([]float64, len(models))
	var (
		num, den       float64
		wSum, wConfSum float64
		confSum        float64
		dominant       string
		dominantW      = -1.0
	)
	for i, m := range models {
		m = m.sanitized()
		clean[i] = m
		probs[i] = m.Probability
		eff := m.Weight * m.Confidence
		num += m.Probability * eff
		den += eff
		wSum += m.Weight
		wConfSum += m.Weight * m.Confidence
		confSum += m.Confidence
		if eff > dominantW {
			dominantW = eff
			dominant = m.Name
		}
	}

	summary := Summary{ModelCount: len(clean), Dominant: dominant}
	var fv float64
	if den > 0 {
		fv = num / den
	} else {
		fv = mean(probs)
		summary.Unweighted = true
	}
	fv = market.Clamp(fv, MinFairValue, MaxFairValue)

	var meanConf float64
	if wSum > 0 {
		meanConf = wConfSum / wSum
	} else {
		meanConf = confSum / float64(len(clean))
	}
	summary.Variance = variance(probs)
	summary.AgreementFactor = math.Max(MinAgreement, 1-summary.Variance*10)
	summary.Min, summary.Max = minMax(probs)

	conf := market.Clamp(meanConf*summary.AgreementFactor, 0, MaxConfidence)

	return Analysis{
		FairValue:  fv,
		Midpoint:   midpoint,
		Edge:       fv - midpoint,
		Confidence: conf,
		Models:     clean,
		Summary:    summary,
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// variance is the population variance.
func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	var s float64
	for _, x := range xs {
		s += (x - mu) * (x - mu)
	}
	return s / float64(len(xs))
}

func minMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
