package provider

import (
	"context"
	"fmt"
	"math"

	"predictmax/internal/ensemble"
	"predictmax/internal/market"
)

const (
	RankingName   = "ranking_model"
	eloScale      = 400.0
	fullSample    = 50
	decisiveGap   = 200.0
	rankingMaxCnf = 0.8
)

// RankingModel estimates head-to-head sports markets from reference ratings.
// The first team named in the question is the YES side.
type RankingModel struct {
	Reference ReferenceData
	Weight    float64
}

func (r *RankingModel) Name() string { return RankingName }

func (r *RankingModel) Estimate(_ context.Context, m market.UnifiedMarket) (*ensemble.Model, error) {
	if r == nil || r.Reference == nil || m.Category != market.CategorySports {
		return nil, nil
	}
	teams := FindTeams(r.Reference, m.Question)
	if len(teams) < 2 {
		return nil, nil
	}
	a, b := teams[0], teams[1]
	gap := a.Rating - b.Rating
	p := 1 / (1 + math.Pow(10, -gap/eloScale))

	sample := min(a.Games, b.Games)
	conf := 0.35 +
		0.25*float64(min(sample, fullSample))/fullSample +
		0.2*math.Min(math.Abs(gap), decisiveGap)/decisiveGap
	conf = math.Min(conf, rankingMaxCnf)

	return &ensemble.Model{
		Name:        RankingName,
		Probability: p,
		Weight:      r.Weight,
		Confidence:  conf,
		Breakdown: ensemble.DomainBreakdown{
			Domain:      a.League,
			Entities:    []string{a.Name, b.Name},
			RatingA:     a.Rating,
			RatingB:     b.Rating,
			RatingGap:   gap,
			SampleSize:  sample,
			Description: fmt.Sprintf("%s %.0f vs %s %.0f", a.Name, a.Rating, b.Name, b.Rating),
		},
	}, nil
}
