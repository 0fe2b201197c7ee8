package normalizer

import (
	"encoding/json"
	"strings"

	"predictmax/internal/market"
)

// kalshiMarket mirrors a trade-api/v2 market object. Integer prices are cents;
// the *_dollars strings carry sub-penny precision and win when present.
type kalshiMarket struct {
	Ticker         string   `json:"ticker"`
	EventTicker    string   `json:"event_ticker"`
	SeriesTicker   string   `json:"series_ticker"`
	Title          string   `json:"title"`
	Subtitle       string   `json:"subtitle"`
	YesSubTitle    string   `json:"yes_sub_title"`
	NoSubTitle     string   `json:"no_sub_title"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	Status         string   `json:"status"`
	CloseTime      string   `json:"close_time"`
	ExpirationTime string   `json:"expiration_time"`

	YesBid    flexFloat `json:"yes_bid"`
	YesAsk    flexFloat `json:"yes_ask"`
	NoBid     flexFloat `json:"no_bid"`
	NoAsk     flexFloat `json:"no_ask"`
	LastPrice flexFloat `json:"last_price"`

	YesBidDollars    flexFloat `json:"yes_bid_dollars"`
	YesAskDollars    flexFloat `json:"yes_ask_dollars"`
	NoBidDollars     flexFloat `json:"no_bid_dollars"`
	NoAskDollars     flexFloat `json:"no_ask_dollars"`
	LastPriceDollars flexFloat `json:"last_price_dollars"`

	Volume           flexFloat `json:"volume"`
	Volume24h        flexFloat `json:"volume_24h"`
	OpenInterest     flexFloat `json:"open_interest"`
	Liquidity        flexFloat `json:"liquidity"`
	LiquidityDollars flexFloat `json:"liquidity_dollars"`
}

func decodeKalshi(payload json.RawMessage) (draft, error) {
	var km kalshiMarket
	if err := json.Unmarshal(payload, &km); err != nil {
		return draft{}, err
	}
	question := strings.TrimSpace(km.Title)
	if sub := strings.TrimSpace(km.YesSubTitle); sub != "" && !strings.Contains(strings.ToLower(question), strings.ToLower(sub)) {
		question = question + " (" + sub + ")"
	}

	yesBid := kalshiPrice(km.YesBidDollars, km.YesBid)
	yesAsk := kalshiPrice(km.YesAskDollars, km.YesAsk)
	q := quote{
		noBid: kalshiPrice(km.NoBidDollars, km.NoBid),
		noAsk: kalshiPrice(km.NoAskDollars, km.NoAsk),
		last:  kalshiPrice(km.LastPriceDollars, km.LastPrice),
	}
	// An ask of 0 means an empty book on that side.
	if yesAsk != nil && *yesAsk > 0 {
		if yesBid == nil {
			zero := 0.0
			yesBid = &zero
		}
		q.yesBid, q.yesAsk = yesBid, yesAsk
	}
	if q.last != nil && *q.last <= 0 {
		q.last = nil
	}

	notional := 0.0
	if v := kalshiPrice(km.LiquidityDollars, km.Liquidity); v != nil {
		notional = *v
	}

	outcomes := []string{"Yes", "No"}
	if km.YesSubTitle != "" && km.NoSubTitle != "" {
		outcomes = []string{km.YesSubTitle, km.NoSubTitle}
	}

	return draft{
		id:             km.Ticker,
		platform:       market.PlatformKalshi,
		question:       question,
		sourceCategory: km.Category,
		tags:           km.Tags,
		series:         km.SeriesTicker,
		event:          km.EventTicker,
		ticker:         km.Ticker,
		outcomes:       outcomes,
		status:         kalshiStatus(km.Status),
		closeRaw:       km.CloseTime,
		expirationRaw:  km.ExpirationTime,
		quote:          q,
		volume24h:      km.Volume24h.v,
		totalVolume:    km.Volume.v,
		openInterest:   km.OpenInterest.v,
		notional:       notional,
	}, nil
}

func kalshiPrice(dollars, cents flexFloat) *float64 {
	if dollars.ok {
		return dollars.ptr()
	}
	return cents.scaled(100)
}

func kalshiStatus(s string) market.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "open":
		return market.StatusOpen
	case "closed", "paused":
		return market.StatusClosed
	case "settled", "finalized", "determined":
		return market.StatusSettled
	case "initialized", "unopened":
		return market.StatusInitialized
	default:
		return ""
	}
}
