package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"predictmax/internal/apperr"
	"predictmax/internal/cache"
	"predictmax/internal/ensemble"
	"predictmax/internal/httpx"
	"predictmax/internal/market"
	"predictmax/internal/search"
)

const (
	ExternalOddsName = "external_odds"
	oddsSourceName   = "the-odds-api"
	h2hMarket        = "h2h"
)

type OddsOutcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type OddsMarket struct {
	Key      string        `json:"key"`
	Outcomes []OddsOutcome `json:"outcomes"`
}

type OddsBookmaker struct {
	Key     string       `json:"key"`
	Title   string       `json:"title"`
	Markets []OddsMarket `json:"markets"`
}

type OddsEvent struct {
	ID           string          `json:"id"`
	SportKey     string          `json:"sport_key"`
	CommenceTime time.Time       `json:"commence_time"`
	HomeTeam     string          `json:"home_team"`
	AwayTeam     string          `json:"away_team"`
	Bookmakers   []OddsBookmaker `json:"bookmakers"`
}

// OddsSource lists upcoming events with bookmaker prices for one sport key.
type OddsSource interface {
	Events(ctx context.Context, sport string) ([]OddsEvent, error)
}

// OddsClient reads decimal h2h odds from The Odds API v4.
type OddsClient struct {
	HTTP     *httpx.Client
	APIKey   string
	Regions  string
	Cache    cache.Store
	CacheTTL time.Duration
}

func (c *OddsClient) Events(ctx context.Context, sport string) ([]OddsEvent, error) {
	key := "odds:" + sport + ":" + c.Regions
	return cache.Wrap(ctx, c.Cache, key, c.CacheTTL, func(ctx context.Context) ([]OddsEvent, error) {
		q := url.Values{}
		q.Set("apiKey", c.APIKey)
		q.Set("regions", c.Regions)
		q.Set("markets", h2hMarket)
		q.Set("oddsFormat", "decimal")
		var events []OddsEvent
		if err := c.HTTP.GetJSON(ctx, "/sports/"+url.PathEscape(sport)+"/odds", q, &events); err != nil {
			return nil, err
		}
		return events, nil
	})
}

// ExternalOdds turns bookmaker consensus into a model and into the implied
// odds signal the quick scan reads.
type ExternalOdds struct {
	Source    OddsSource
	Sports    []string
	Reference ReferenceData
	Weight    float64
	Logger    *zap.Logger
}

// Quote is the de-vigged bookmaker view of one head-to-head market.
type Quote struct {
	Event       OddsEvent
	YesTeam     string
	NoTeam      string
	Probability float64
	Min         float64
	Max         float64
	Overround   float64
	Bookmakers  []string
}

func (o *ExternalOdds) Name() string { return ExternalOddsName }

func (o *ExternalOdds) Estimate(ctx context.Context, m market.UnifiedMarket) (*ensemble.Model, error) {
	q, err := o.Lookup(ctx, m)
	if err != nil || q == nil {
		return nil, err
	}
	n := len(q.Bookmakers)
	conf := math.Min(0.9, 0.5+0.05*float64(n)) - (q.Max - q.Min)
	return &ensemble.Model{
		Name:        ExternalOddsName,
		Probability: q.Probability,
		Weight:      o.Weight,
		Confidence:  market.Clamp01(conf),
		Breakdown: ensemble.ExternalOddsBreakdown{
			Bookmakers: q.Bookmakers,
			Min:        q.Min,
			Max:        q.Max,
			Overround:  q.Overround,
		},
	}, nil
}

// Attach returns m with the bookmaker-implied YES probability in its domain
// context. Markets without a matching event come back unchanged.
func (o *ExternalOdds) Attach(ctx context.Context, m market.UnifiedMarket) market.UnifiedMarket {
	q, err := o.Lookup(ctx, m)
	if err != nil {
		o.debug("odds: attach skipped", m.ID, err)
		return m
	}
	if q == nil {
		return m
	}
	p := q.Probability
	return m.WithDomain(&market.DomainContext{
		Kind:        string(market.CategorySports),
		Source:      oddsSourceName,
		Entities:    []string{q.YesTeam, q.NoTeam},
		ImpliedOdds: &p,
		Notes: map[string]string{
			"event_id":   q.Event.ID,
			"sport":      q.Event.SportKey,
			"bookmakers": fmt.Sprint(len(q.Bookmakers)),
		},
	})
}

// Lookup finds the event a sports market refers to. It returns (nil, nil)
// when the market is not a matched head-to-head.
func (o *ExternalOdds) Lookup(ctx context.Context, m market.UnifiedMarket) (*Quote, error) {
	if o == nil || o.Source == nil || m.Category != market.CategorySports {
		return nil, nil
	}
	events, err := o.events(ctx)
	if err != nil {
		return nil, err
	}
	question := strings.ToLower(m.Question)
	for _, ev := range events {
		homePos := o.mentionedAt(question, ev.HomeTeam)
		awayPos := o.mentionedAt(question, ev.AwayTeam)
		if homePos < 0 || awayPos < 0 {
			continue
		}
		yes, no := ev.HomeTeam, ev.AwayTeam
		if awayPos < homePos {
			yes, no = no, yes
		}
		if q := consensus(ev, yes, no); q != nil {
			return q, nil
		}
	}
	return nil, nil
}

func (o *ExternalOdds) events(ctx context.Context) ([]OddsEvent, error) {
	results := make([][]OddsEvent, len(o.Sports))
	errs := make([]error, len(o.Sports))
	var g errgroup.Group
	for i, sport := range o.Sports {
		g.Go(func() error {
			results[i], errs[i] = o.Source.Events(ctx, sport)
			return nil
		})
	}
	_ = g.Wait()

	var out []OddsEvent
	failed := 0
	for i, evs := range results {
		if errs[i] != nil {
			failed++
			o.debug("odds: sport fetch failed", o.Sports[i], errs[i])
			continue
		}
		out = append(out, evs...)
	}
	if len(o.Sports) > 0 && failed == len(o.Sports) {
		return nil, apperr.Enrichment(ExternalOddsName, errors.Join(errs...))
	}
	return out, nil
}

// mentionedAt is the first position in question naming team by full name,
// nickname (last word) or reference alias, or -1.
func (o *ExternalOdds) mentionedAt(question, team string) int {
	keys := []string{strings.ToLower(team)}
	if f := strings.Fields(keys[0]); len(f) > 1 {
		keys = append(keys, f[len(f)-1])
	}
	if o.Reference != nil {
		keys = append(keys, o.Reference.Aliases(team)...)
	}
	best := -1
	for _, k := range keys {
		if i := search.IndexWord(question, k); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

// consensus averages de-vigged h2h probabilities for yes across bookmakers.
func consensus(ev OddsEvent, yes, no string) *Quote {
	q := &Quote{Event: ev, YesTeam: yes, NoTeam: no, Min: 1}
	var sum, overSum float64
	for _, bm := range ev.Bookmakers {
		for _, mk := range bm.Markets {
			if mk.Key != h2hMarket {
				continue
			}
			var yesInv, total float64
			valid := true
			for _, oc := range mk.Outcomes {
				if oc.Price <= 1 {
					valid = false
					break
				}
				inv := 1 / oc.Price
				total += inv
				if strings.EqualFold(oc.Name, yes) {
					yesInv = inv
				}
			}
			if !valid || yesInv == 0 || total == 0 {
				continue
			}
			p := yesInv / total
			sum += p
			overSum += total
			q.Min = math.Min(q.Min, p)
			q.Max = math.Max(q.Max, p)
			q.Bookmakers = append(q.Bookmakers, bm.Key)
		}
	}
	n := float64(len(q.Bookmakers))
	if n == 0 {
		return nil
	}
	q.Probability = sum / n
	q.Overround = overSum / n
	return q
}

func (o *ExternalOdds) debug(msg, subject string, err error) {
	if o.Logger == nil {
		return
	}
	o.Logger.Debug(msg, zap.String("subject", subject), zap.Error(err))
}

