package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"predictmax/internal/normalizer"
)

const DefaultTickerURL = "wss://api.elections.kalshi.com/trade-api/ws/v2"

// TickerProvider returns the market tickers to subscribe to.
type TickerProvider func(context.Context) ([]string, error)

type TickerStreamOptions struct {
	URL               string
	Tickers           TickerProvider
	HeartbeatInterval time.Duration
	PingTimeout       time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	Logger            *zap.Logger
}

// TickerStream keeps a websocket subscription to live top-of-book updates and
// reconnects with jittered exponential backoff.
type TickerStream struct {
	opts TickerStreamOptions
	seq  int
}

func NewTickerStream(opts TickerStreamOptions) *TickerStream {
	if strings.TrimSpace(opts.URL) == "" {
		opts.URL = DefaultTickerURL
	}
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = 20 * time.Second
	}
	if opts.PingTimeout == 0 {
		opts.PingTimeout = 5 * time.Second
	}
	if opts.BackoffMin == 0 {
		opts.BackoffMin = time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 30 * time.Second
	}
	return &TickerStream{opts: opts}
}

type subscribeCmd struct {
	ID     int             `json:"id"`
	Cmd    string          `json:"cmd"`
	Params subscribeParams `json:"params"`
}

type subscribeParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers"`
}

// Run blocks until ctx is done.
func (s *TickerStream) Run(ctx context.Context, onTick func(normalizer.Tick)) error {
	if s == nil {
		return fmt.Errorf("stream is nil")
	}
	wait := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.session(ctx, onTick)
		if err == nil || errors.Is(err, context.Canceled) {
			return ctx.Err()
		}
		s.warn("ticker stream reconnecting", err)
		if err := sleepWithJitter(ctx, wait); err != nil {
			return err
		}
		wait = nextBackoff(wait, s.opts.BackoffMax)
	}
}

func (s *TickerStream) session(ctx context.Context, onTick func(normalizer.Tick)) error {
	var tickers []string
	if s.opts.Tickers != nil {
		ids, err := s.opts.Tickers(ctx)
		if err != nil {
			return err
		}
		tickers = ids
	}
	if len(tickers) == 0 {
		return errors.New("no tickers to subscribe")
	}

	conn, _, err := websocket.Dial(ctx, s.opts.URL, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 20)
	defer conn.Close(websocket.StatusNormalClosure, "reconnect")

	s.seq++
	cmd, _ := json.Marshal(subscribeCmd{
		ID:     s.seq,
		Cmd:    "subscribe",
		Params: subscribeParams{Channels: []string{"ticker"}, MarketTickers: tickers},
	})
	if err := conn.Write(ctx, websocket.MessageText, cmd); err != nil {
		return err
	}
	if s.opts.Logger != nil {
		s.opts.Logger.Info("ticker stream subscribed", zap.Int("tickers", len(tickers)))
	}

	hbCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	hbErr := make(chan error, 1)
	go func() {
		t := time.NewTicker(s.opts.HeartbeatInterval)
		defer t.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-t.C:
				pingCtx, cancelPing := context.WithTimeout(hbCtx, s.opts.PingTimeout)
				err := conn.Ping(pingCtx)
				cancelPing()
				if err != nil {
					hbErr <- err
					cancel()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.Read(hbCtx)
		if err != nil {
			select {
			case hb := <-hbErr:
				return fmt.Errorf("heartbeat: %w", hb)
			default:
			}
			return err
		}
		if tick, ok := ParseTick(data); ok && onTick != nil {
			onTick(tick)
		}
	}
}

type tickerEnvelope struct {
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

type kalshiTicker struct {
	MarketTicker string   `json:"market_ticker"`
	YesBid       *float64 `json:"yes_bid"`
	YesAsk       *float64 `json:"yes_ask"`
	Price        *float64 `json:"price"`
}

// ParseTick reads a "ticker" channel message. Prices arrive in cents.
func ParseTick(data []byte) (normalizer.Tick, bool) {
	var env tickerEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type != "ticker" || len(env.Msg) == 0 {
		return normalizer.Tick{}, false
	}
	var kt kalshiTicker
	if err := json.Unmarshal(env.Msg, &kt); err != nil || kt.MarketTicker == "" {
		return normalizer.Tick{}, false
	}
	t := normalizer.Tick{MarketID: kt.MarketTicker}
	if kt.YesBid != nil {
		t.YesBid = *kt.YesBid / 100
	}
	if kt.YesAsk != nil {
		t.YesAsk = *kt.YesAsk / 100
	}
	if kt.Price != nil {
		t.LastPrice = *kt.Price / 100
	}
	return t, true
}

func (s *TickerStream) warn(msg string, err error) {
	if s.opts.Logger != nil {
		s.opts.Logger.Warn(msg, zap.Error(err))
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepWithJitter(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	jitter := time.Duration(0)
	if half := int64(base / 2); half > 0 {
		jitter = time.Duration(rand.Int63n(half))
	}
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
