// Package source fetches raw market records from the prediction-market venues.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"predictmax/internal/apperr"
	"predictmax/internal/config"
	"predictmax/internal/httpx"
	"predictmax/internal/market"
	"predictmax/internal/normalizer"
)

// Client is one venue's catalog reader.
type Client interface {
	Name() string
	Fetch(ctx context.Context) ([]normalizer.RawRecord, error)
}

type KalshiClient struct {
	HTTP      *httpx.Client
	PageLimit int
	MaxPages  int
}

type kalshiPage struct {
	Markets []json.RawMessage `json:"markets"`
	Cursor  string            `json:"cursor"`
}

func (c *KalshiClient) Name() string { return string(market.PlatformKalshi) }

// Fetch pages through open markets by cursor.
func (c *KalshiClient) Fetch(ctx context.Context) ([]normalizer.RawRecord, error) {
	var out []normalizer.RawRecord
	cursor := ""
	for page := 0; page < pages(c.MaxPages); page++ {
		q := url.Values{}
		q.Set("status", "open")
		q.Set("limit", strconv.Itoa(limit(c.PageLimit)))
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var p kalshiPage
		if err := c.HTTP.GetJSON(ctx, "/markets", q, &p); err != nil {
			if len(out) > 0 {
				return out, nil
			}
			return nil, fmt.Errorf("kalshi markets page %d: %w", page, err)
		}
		for _, raw := range p.Markets {
			out = append(out, normalizer.RawRecord{Schema: normalizer.SchemaKalshi, Payload: raw})
		}
		if p.Cursor == "" || len(p.Markets) == 0 {
			break
		}
		cursor = p.Cursor
	}
	return out, nil
}

type GammaClient struct {
	HTTP      *httpx.Client
	PageLimit int
	MaxPages  int
}

func (c *GammaClient) Name() string { return string(market.PlatformPolymarket) }

// Fetch pages through active markets by offset, busiest first.
func (c *GammaClient) Fetch(ctx context.Context) ([]normalizer.RawRecord, error) {
	var out []normalizer.RawRecord
	n := limit(c.PageLimit)
	for page := 0; page < pages(c.MaxPages); page++ {
		q := url.Values{}
		q.Set("active", "true")
		q.Set("closed", "false")
		q.Set("order", "volume24hr")
		q.Set("ascending", "false")
		q.Set("limit", strconv.Itoa(n))
		q.Set("offset", strconv.Itoa(page*n))
		var items []json.RawMessage
		if err := c.HTTP.GetJSON(ctx, "/markets", q, &items); err != nil {
			if len(out) > 0 {
				return out, nil
			}
			return nil, fmt.Errorf("gamma markets page %d: %w", page, err)
		}
		for _, raw := range items {
			out = append(out, normalizer.RawRecord{Schema: normalizer.SchemaPolymarket, Payload: raw})
		}
		if len(items) < n {
			break
		}
	}
	return out, nil
}

func limit(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}

func pages(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// Clients builds the enabled venue clients.
func Clients(cfg config.SourcesConfig, logger *zap.Logger) []Client {
	var out []Client
	if cfg.Kalshi.Enabled {
		out = append(out, &KalshiClient{HTTP: newHTTP(cfg.Kalshi, logger), PageLimit: cfg.Kalshi.PageLimit, MaxPages: cfg.Kalshi.MaxPages})
	}
	if cfg.Polymarket.Enabled {
		out = append(out, &GammaClient{HTTP: newHTTP(cfg.Polymarket, logger), PageLimit: cfg.Polymarket.PageLimit, MaxPages: cfg.Polymarket.MaxPages})
	}
	return out
}

func newHTTP(sc config.SourceConfig, logger *zap.Logger) *httpx.Client {
	return httpx.New(httpx.Options{
		BaseURL:        sc.BaseURL,
		Timeout:        sc.Timeout,
		RequestsPerSec: sc.RequestsPerSec,
		MaxElapsed:     sc.MaxElapsed,
		Logger:         logger,
	})
}

// Collector fetches every venue in parallel and normalizes the union.
type Collector struct {
	Clients    []Client
	Normalizer *normalizer.Normalizer
	Logger     *zap.Logger
}

// Collect fails only when every venue failed. Partial results are returned
// with the failed venues logged.
func (c *Collector) Collect(ctx context.Context) ([]market.UnifiedMarket, error) {
	if len(c.Clients) == 0 {
		return nil, apperr.Configuration("collect", errors.New("no sources enabled"))
	}
	started := time.Now()
	results := make([][]normalizer.RawRecord, len(c.Clients))
	errs := make([]error, len(c.Clients))
	// Errors are collected per client below, not through the group.
	var g errgroup.Group
	for i, cl := range c.Clients {
		g.Go(func() error {
			results[i], errs[i] = cl.Fetch(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var raws []normalizer.RawRecord
	failed := 0
	for i, cl := range c.Clients {
		if errs[i] != nil {
			failed++
			if c.Logger != nil {
				c.Logger.Warn("source fetch failed", zap.String("source", cl.Name()), zap.Error(errs[i]))
			}
			continue
		}
		raws = append(raws, results[i]...)
	}
	if failed == len(c.Clients) {
		return nil, fmt.Errorf("collect: %w", errors.Join(errs...))
	}

	n := c.Normalizer
	if n == nil {
		n = normalizer.New(c.Logger)
	}
	markets := n.NormalizeAll(raws)
	if c.Logger != nil {
		c.Logger.Info("catalog collected",
			zap.Int("raw", len(raws)),
			zap.Int("markets", len(markets)),
			zap.Int("failed_sources", failed),
			zap.Duration("took", time.Since(started)),
		)
	}
	return markets, nil
}
