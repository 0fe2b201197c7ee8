package normalizer

import (
	"encoding/json"
	"strings"

	"predictmax/internal/market"
)

const WarnPriceUnitInferred = "price_unit_inferred"

type genericMarket struct {
	ID             string   `json:"id"`
	Platform       string   `json:"platform"`
	Question       string   `json:"question"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	Series         string   `json:"series"`
	Event          string   `json:"event"`
	Ticker         string   `json:"ticker"`
	Outcomes       []string `json:"outcomes"`
	Status         string   `json:"status"`
	CloseTime      string   `json:"close_time"`
	ExpirationTime string   `json:"expiration_time"`
	// PriceUnit is "cents" or "probability"; empty infers cents when any price exceeds 1.
	PriceUnit string `json:"price_unit"`

	YesBid    flexFloat `json:"yes_bid"`
	YesAsk    flexFloat `json:"yes_ask"`
	NoBid     flexFloat `json:"no_bid"`
	NoAsk     flexFloat `json:"no_ask"`
	YesPrice  flexFloat `json:"yes_price"`
	NoPrice   flexFloat `json:"no_price"`
	LastPrice flexFloat `json:"last_price"`

	Volume24h     flexFloat `json:"volume_24h"`
	TotalVolume   flexFloat `json:"total_volume"`
	OpenInterest  flexFloat `json:"open_interest"`
	NotionalValue flexFloat `json:"notional_value"`
}

func decodeGeneric(payload json.RawMessage) (draft, error) {
	var gm genericMarket
	if err := json.Unmarshal(payload, &gm); err != nil {
		return draft{}, err
	}
	var warnings []string
	prices := []flexFloat{gm.YesBid, gm.YesAsk, gm.NoBid, gm.NoAsk, gm.YesPrice, gm.NoPrice, gm.LastPrice}
	div := 1.0
	switch strings.ToLower(strings.TrimSpace(gm.PriceUnit)) {
	case "cents":
		div = 100
	case "probability", "dollars":
	default:
		for _, p := range prices {
			if p.ok && p.v > 1 {
				div = 100
				warnings = append(warnings, WarnPriceUnitInferred)
				break
			}
		}
	}

	q := quote{
		noBid:    gm.NoBid.scaled(div),
		noAsk:    gm.NoAsk.scaled(div),
		yesPrice: gm.YesPrice.scaled(div),
		noPrice:  gm.NoPrice.scaled(div),
		last:     gm.LastPrice.scaled(div),
	}
	if gm.YesBid.ok && gm.YesAsk.ok {
		q.yesBid, q.yesAsk = gm.YesBid.scaled(div), gm.YesAsk.scaled(div)
	}

	return draft{
		id:             gm.ID,
		platform:       market.Platform(strings.ToLower(strings.TrimSpace(gm.Platform))),
		question:       gm.Question,
		sourceCategory: gm.Category,
		tags:           gm.Tags,
		series:         gm.Series,
		event:          gm.Event,
		ticker:         gm.Ticker,
		outcomes:       gm.Outcomes,
		status:         genericStatus(gm.Status),
		closeRaw:       gm.CloseTime,
		expirationRaw:  gm.ExpirationTime,
		quote:          q,
		volume24h:      gm.Volume24h.v,
		totalVolume:    gm.TotalVolume.v,
		openInterest:   gm.OpenInterest.v,
		notional:       gm.NotionalValue.v,
		warnings:       warnings,
	}, nil
}

func genericStatus(s string) market.Status {
	switch st := market.Status(strings.ToLower(strings.TrimSpace(s))); st {
	case market.StatusOpen, market.StatusClosed, market.StatusSettled, market.StatusInitialized:
		return st
	default:
		return kalshiStatus(s)
	}
}
