package normalizer

import (
	"encoding/json"
	"strings"

	"predictmax/internal/market"
)

type gammaTag struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

type gammaSeries struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type gammaEvent struct {
	ID     flexString    `json:"id"`
	Title  string        `json:"title"`
	Slug   string        `json:"slug"`
	Series []gammaSeries `json:"series"`
	Tags   []gammaTag    `json:"tags"`
}

// gammaMarket mirrors a Gamma /markets record. Prices are already in [0,1].
type gammaMarket struct {
	ID                  flexString     `json:"id"`
	Question            string         `json:"question"`
	ConditionID         string         `json:"conditionId"`
	Slug                string         `json:"slug"`
	Category            string         `json:"category"`
	EndDate             string         `json:"endDate"`
	EndDateISO          string         `json:"endDateIso"`
	Outcomes            flexStringList `json:"outcomes"`
	OutcomePrices       flexStringList `json:"outcomePrices"`
	BestBid             flexFloat      `json:"bestBid"`
	BestAsk             flexFloat      `json:"bestAsk"`
	LastTradePrice      flexFloat      `json:"lastTradePrice"`
	Volume              flexFloat      `json:"volume"`
	Volume24hr          flexFloat      `json:"volume24hr"`
	Liquidity           flexFloat      `json:"liquidity"`
	OpenInterest        flexFloat      `json:"openInterest"`
	Active              *bool          `json:"active"`
	Closed              bool           `json:"closed"`
	UmaResolutionStatus string         `json:"umaResolutionStatus"`
	Events              []gammaEvent   `json:"events"`
	Tags                []gammaTag     `json:"tags"`
}

func decodePolymarket(payload json.RawMessage) (draft, error) {
	var gm gammaMarket
	if err := json.Unmarshal(payload, &gm); err != nil {
		return draft{}, err
	}

	q := quote{last: gm.LastTradePrice.ptr()}
	if gm.BestAsk.ok && gm.BestAsk.v > 0 && gm.BestBid.ok {
		q.yesBid, q.yesAsk = gm.BestBid.ptr(), gm.BestAsk.ptr()
	} else {
		q.yesPrice = gm.OutcomePrices.floatAt(0)
		q.noPrice = gm.OutcomePrices.floatAt(1)
	}
	if q.last != nil && *q.last <= 0 {
		q.last = nil
	}

	d := draft{
		id:             string(gm.ID),
		platform:       market.PlatformPolymarket,
		question:       gm.Question,
		sourceCategory: gm.Category,
		ticker:         gm.Slug,
		outcomes:       []string(gm.Outcomes),
		status:         gammaStatus(gm),
		closeRaw:       firstNonEmpty(gm.EndDate, gm.EndDateISO),
		quote:          q,
		volume24h:      gm.Volume24hr.v,
		totalVolume:    gm.Volume.v,
		openInterest:   gm.OpenInterest.v,
		notional:       gm.Liquidity.v,
	}
	if d.id == "" {
		d.id = gm.ConditionID
	}
	for _, t := range gm.Tags {
		d.tags = append(d.tags, firstNonEmpty(t.Label, t.Slug))
	}
	if len(gm.Events) > 0 {
		ev := gm.Events[0]
		d.event = firstNonEmpty(ev.Title, ev.Slug)
		if len(ev.Series) > 0 {
			d.series = firstNonEmpty(ev.Series[0].Title, ev.Series[0].Slug)
		}
		for _, t := range ev.Tags {
			d.tags = append(d.tags, firstNonEmpty(t.Label, t.Slug))
		}
		if d.sourceCategory == "" && len(ev.Tags) > 0 {
			d.sourceCategory = ev.Tags[0].Label
		}
	}
	return d, nil
}

func gammaStatus(gm gammaMarket) market.Status {
	switch {
	case gm.Closed && strings.EqualFold(gm.UmaResolutionStatus, "resolved"):
		return market.StatusSettled
	case gm.Closed:
		return market.StatusClosed
	case gm.Active != nil && !*gm.Active:
		return market.StatusInitialized
	default:
		return market.StatusOpen
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
