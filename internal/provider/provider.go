// Package provider holds the estimators that feed the probability ensemble
// beyond the market's own consensus.
package provider

import (
	"os"
	"strings"

	"go.uber.org/zap"

	"predictmax/internal/cache"
	"predictmax/internal/config"
	"predictmax/internal/ensemble"
	"predictmax/internal/httpx"
	"predictmax/internal/market"
)

type Set struct {
	Reference ReferenceData
	Providers []ensemble.ModelProvider
	// Odds is nil when the odds API is disabled or has no key.
	Odds *ExternalOdds
}

func Build(cfg config.Config, store cache.Store, logger *zap.Logger) (*Set, error) {
	ref, err := LoadReferenceData(cfg.Reference.Path)
	if err != nil {
		return nil, err
	}
	set := &Set{Reference: ref}

	domain := NewRegistry().
		Register(market.CategorySports, &RankingModel{Reference: ref, Weight: cfg.Ensemble.DomainWeight})
	set.Providers = append(set.Providers, domain)

	if cfg.OddsAPI.Enabled {
		key := strings.TrimSpace(os.Getenv(cfg.OddsAPI.APIKeyEnv))
		if key == "" {
			if logger != nil {
				logger.Warn("odds api enabled without key; external odds disabled", zap.String("env", cfg.OddsAPI.APIKeyEnv))
			}
		} else {
			set.Odds = &ExternalOdds{
				Source: &OddsClient{
					HTTP: httpx.New(httpx.Options{
						BaseURL:        cfg.OddsAPI.BaseURL,
						Timeout:        cfg.OddsAPI.Timeout,
						RequestsPerSec: cfg.OddsAPI.RequestsPerSec,
						Logger:         logger,
					}),
					APIKey:   key,
					Regions:  cfg.OddsAPI.Regions,
					Cache:    store,
					CacheTTL: cfg.OddsAPI.CacheTTL,
				},
				Sports:    cfg.OddsAPI.Sports,
				Reference: ref,
				Weight:    cfg.Ensemble.ExternalOddsWeight,
				Logger:    logger,
			}
			set.Providers = append(set.Providers, set.Odds)
		}
	}

	set.Providers = append(set.Providers, &HistoricalBaseline{Reference: ref, Weight: cfg.Ensemble.HistoricalWeight})
	return set, nil
}
