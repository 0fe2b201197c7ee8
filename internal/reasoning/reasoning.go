// Package reasoning provides chat-model narrators for trade recommendations.
package reasoning

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"predictmax/internal/apperr"
	"predictmax/internal/config"
	"predictmax/internal/recommend"
)

const defaultMaxTokens = 400

// New picks the generator named by cfg.Provider. "none" and "" select the
// deterministic template.
func New(cfg config.ReasoningConfig, logger *zap.Logger) (recommend.ReasoningGenerator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == "none" || provider == recommend.TemplateSource {
		return recommend.Template{}, nil
	}

	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultKeyEnv(provider)
	}
	if keyEnv == "" {
		return nil, apperr.Configuration("reasoning", fmt.Errorf("unknown provider %q", cfg.Provider))
	}
	key := strings.TrimSpace(os.Getenv(keyEnv))
	if key == "" {
		return nil, apperr.Configuration("reasoning", fmt.Errorf("%s is not set", keyEnv))
	}

	var g recommend.ReasoningGenerator
	switch provider {
	case "anthropic":
		g = NewAnthropic(key, cfg.Model, cfg.BaseURL, cfg.MaxTokens, cfg.Timeout)
	case "openai":
		g = NewOpenAI(key, cfg.Model, cfg.BaseURL, cfg.MaxTokens, cfg.Timeout)
	default:
		return nil, apperr.Configuration("reasoning", fmt.Errorf("unknown provider %q", cfg.Provider))
	}
	if logger != nil {
		logger.Info("reasoning generator ready", zap.String("provider", provider), zap.String("model", cfg.Model))
	}
	return g, nil
}

func defaultKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

func maxTokensOrDefault(n int64) int64 {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
