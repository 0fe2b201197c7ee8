package provider

import (
	"context"

	"predictmax/internal/ensemble"
	"predictmax/internal/market"
)

// Registry routes a market to the domain provider registered for its category.
type Registry struct {
	byCategory map[market.Category]ensemble.ModelProvider
}

func NewRegistry() *Registry {
	return &Registry{byCategory: map[market.Category]ensemble.ModelProvider{}}
}

func (r *Registry) Register(c market.Category, p ensemble.ModelProvider) *Registry {
	r.byCategory[c] = p
	return r
}

func (r *Registry) Name() string { return "domain" }

func (r *Registry) Estimate(ctx context.Context, m market.UnifiedMarket) (*ensemble.Model, error) {
	if r == nil {
		return nil, nil
	}
	p, ok := r.byCategory[m.Category]
	if !ok || p == nil {
		return nil, nil
	}
	return p.Estimate(ctx, m)
}
