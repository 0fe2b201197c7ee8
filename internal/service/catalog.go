package service

import (
	"sort"
	"sync"
	"time"

	"predictmax/internal/market"
	"predictmax/internal/normalizer"
)

// Catalog is the in-memory set of normalized markets served to readers while
// refreshes and live ticks replace entries.
type Catalog struct {
	mu          sync.RWMutex
	markets     map[string]market.UnifiedMarket
	refreshedAt time.Time
}

func NewCatalog() *Catalog {
	return &Catalog{markets: map[string]market.UnifiedMarket{}}
}

// Replace swaps the whole catalog for a fresh collection.
func (c *Catalog) Replace(markets []market.UnifiedMarket, at time.Time) {
	next := make(map[string]market.UnifiedMarket, len(markets))
	for _, m := range markets {
		next[m.ID] = m
	}
	c.mu.Lock()
	c.markets = next
	c.refreshedAt = at
	c.mu.Unlock()
}

// Merge adds markets not already present. Used to warm the catalog from storage.
func (c *Catalog) Merge(markets []market.UnifiedMarket) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	added := 0
	for _, m := range markets {
		if _, ok := c.markets[m.ID]; ok {
			continue
		}
		c.markets[m.ID] = m
		added++
	}
	return added
}

func (c *Catalog) Get(id string) (market.UnifiedMarket, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.markets[id]
	return m, ok
}

// All returns every market, busiest first.
func (c *Catalog) All() []market.UnifiedMarket {
	c.mu.RLock()
	out := make([]market.UnifiedMarket, 0, len(c.markets))
	for _, m := range c.markets {
		out = append(out, m)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Liquidity.Volume24h != out[j].Liquidity.Volume24h {
			return out[i].Liquidity.Volume24h > out[j].Liquidity.Volume24h
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ApplyTick patches live pricing into a known market.
func (c *Catalog) ApplyTick(t normalizer.Tick) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.markets[t.MarketID]
	if !ok {
		return false
	}
	c.markets[t.MarketID] = normalizer.ApplyTick(m, t)
	return true
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.markets)
}

func (c *Catalog) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}
