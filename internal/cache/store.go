// Package cache holds short-lived enrichment payloads such as bookmaker odds
// and fetched catalog pages.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"predictmax/internal/apperr"
	"predictmax/internal/config"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// New builds the store named by cfg.Backend: "memory" (default) or "redis".
func New(cfg config.CacheConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return nil, apperr.Configuration("cache", fmt.Errorf("redis addr is empty"))
		}
		return NewRedisStore(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), nil
	default:
		return nil, apperr.Configuration("cache", fmt.Errorf("unknown backend %q", cfg.Backend))
	}
}

// GetJSON decodes a cached value into out. A value that no longer decodes is
// treated as a miss.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	if s == nil {
		return false, nil
	}
	b, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		_ = s.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, b, ttl)
}

// Wrap returns the cached value for key, or computes, stores and returns it.
// Cache read and write failures degrade to computing.
func Wrap[T any](ctx context.Context, s Store, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var out T
	if ok, err := GetJSON(ctx, s, key, &out); err == nil && ok {
		return out, nil
	}
	out, err := compute(ctx)
	if err != nil {
		return out, err
	}
	_ = SetJSON(ctx, s, key, out, ttl)
	return out, nil
}
