package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"predictmax/internal/apperr"
	"predictmax/internal/httpx"
	"predictmax/internal/normalizer"
)

func testHTTP(url string) *httpx.Client {
	return httpx.New(httpx.Options{BaseURL: url, RequestsPerSec: 100, MaxElapsed: time.Second})
}

func TestKalshiClient_PagesByCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") != "open" {
			http.Error(w, "status", http.StatusBadRequest)
			return
		}
		switch r.URL.Query().Get("cursor") {
		case "":
			fmt.Fprint(w, `{"markets":[{"ticker":"A","title":"A?","yes_bid":40,"yes_ask":42}],"cursor":"c2"}`)
		case "c2":
			fmt.Fprint(w, `{"markets":[{"ticker":"B","title":"B?","yes_bid":10,"yes_ask":12}],"cursor":""}`)
		default:
			http.Error(w, "cursor", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := &KalshiClient{HTTP: testHTTP(srv.URL), PageLimit: 1, MaxPages: 5}
	raws, err := c.Fetch(context.Background())
	if err != nil || len(raws) != 2 {
		t.Fatalf("raws=%d err=%v", len(raws), err)
	}
	if raws[1].Schema != normalizer.SchemaKalshi {
		t.Fatalf("schema=%s", raws[1].Schema)
	}
}

func TestGammaClient_PagesByOffset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if offset >= 4 {
			fmt.Fprint(w, `[{"id":"5","question":"E?"}]`)
			return
		}
		items := []map[string]any{{"id": strconv.Itoa(offset + 1)}, {"id": strconv.Itoa(offset + 2)}}
		_ = json.NewEncoder(w).Encode(items)
	}))
	defer srv.Close()

	raws, err := (&GammaClient{HTTP: testHTTP(srv.URL), PageLimit: 2, MaxPages: 10}).Fetch(context.Background())
	if err != nil || len(raws) != 5 {
		t.Fatalf("raws=%d err=%v", len(raws), err)
	}
}

type stubClient struct {
	name string
	raws []normalizer.RawRecord
	err  error
}

func (s stubClient) Name() string { return s.name }

func (s stubClient) Fetch(context.Context) ([]normalizer.RawRecord, error) { return s.raws, s.err }

func TestCollector_PartialFailure(t *testing.T) {
	ok := stubClient{name: "kalshi", raws: []normalizer.RawRecord{
		{Schema: normalizer.SchemaKalshi, Payload: json.RawMessage(`{"ticker":"A","title":"Will A happen?","yes_bid":40,"yes_ask":42}`)},
		{Schema: normalizer.SchemaKalshi, Payload: json.RawMessage(`[1,2]`)},
	}}
	bad := stubClient{name: "polymarket", err: errors.New("503")}

	markets, err := (&Collector{Clients: []Client{ok, bad}}).Collect(context.Background())
	if err != nil || len(markets) != 1 || markets[0].ID != "A" {
		t.Fatalf("markets=%v err=%v", markets, err)
	}

	if _, err := (&Collector{Clients: []Client{bad}}).Collect(context.Background()); err == nil {
		t.Fatalf("all sources failing should error")
	}
	if _, err := (&Collector{}).Collect(context.Background()); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("no sources err=%v", err)
	}
}

func TestParseTick(t *testing.T) {
	tick, ok := ParseTick([]byte(`{"type":"ticker","sid":1,"msg":{"market_ticker":"KX-1","yes_bid":45,"yes_ask":47,"price":46}}`))
	if !ok || tick.MarketID != "KX-1" || tick.YesBid != 0.45 || tick.YesAsk != 0.47 || tick.LastPrice != 0.46 {
		t.Fatalf("tick=%+v ok=%v", tick, ok)
	}
	for _, raw := range []string{`{"type":"subscribed","msg":{"sid":1}}`, `not json`, `{"type":"ticker","msg":{}}`} {
		if _, ok := ParseTick([]byte(raw)); ok {
			t.Fatalf("%s should not parse", raw)
		}
	}
}

func TestTickerStream_DeliversTicks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		ctx := r.Context()
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var cmd subscribeCmd
		if json.Unmarshal(data, &cmd) != nil || cmd.Cmd != "subscribe" || len(cmd.Params.MarketTickers) != 1 {
			return
		}
		msg := fmt.Sprintf(`{"type":"ticker","msg":{"market_ticker":%q,"yes_bid":30,"yes_ask":33}}`, cmd.Params.MarketTickers[0])
		_ = conn.Write(ctx, websocket.MessageText, []byte(msg))
		<-ctx.Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got := make(chan normalizer.Tick, 1)
	stream := NewTickerStream(TickerStreamOptions{
		URL:     "ws" + srv.URL[len("http"):],
		Tickers: func(context.Context) ([]string, error) { return []string{"KX-9"}, nil },
	})
	done := make(chan error, 1)
	go func() {
		done <- stream.Run(ctx, func(t normalizer.Tick) {
			select {
			case got <- t:
			default:
			}
		})
	}()

	select {
	case tick := <-got:
		if tick.MarketID != "KX-9" || tick.YesBid != 0.30 {
			t.Fatalf("tick=%+v", tick)
		}
	case <-ctx.Done():
		t.Fatalf("no tick received")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("run err=%v", err)
	}
}
