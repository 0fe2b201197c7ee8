package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"predictmax/internal/apperr"
	"predictmax/internal/config"
	"predictmax/internal/ensemble"
	"predictmax/internal/market"
	"predictmax/internal/recommend"
	"predictmax/internal/risk"
)

func input() recommend.ReasoningInput {
	return recommend.ReasoningInput{
		Market: market.UnifiedMarket{
			ID:       "m1",
			Question: "Will the Lakers beat the Celtics?",
			Platform: market.PlatformKalshi,
			Category: market.CategorySports,
			Pricing:  market.Pricing{Midpoint: 0.5, Spread: 0.02},
		},
		Analysis: ensemble.Analysis{
			FairValue: 0.58, Midpoint: 0.5, Edge: 0.08, Confidence: 0.8,
			Models: []ensemble.Model{{Name: "market_consensus", Probability: 0.5, Weight: 0.3, Confidence: 0.85}},
		},
		Assessment: risk.Assessment{OverallRisk: 0.3, RiskFactors: []string{"thin order book"}},
		Decision:   recommend.Decision{Action: market.ActionBuy, Side: market.SideYes},
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt(input())
	for _, want := range []string{"Lakers", "edge: +8.0 pts", "model market_consensus", "thin order book", "Decision: BUY YES"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestNew_SelectsProvider(t *testing.T) {
	g, err := New(config.ReasoningConfig{Provider: "none"}, nil)
	if err != nil || g.Name() != recommend.TemplateSource {
		t.Fatalf("none: g=%v err=%v", g, err)
	}

	t.Setenv("PM_TEST_EMPTY_KEY", "")
	_, err = New(config.ReasoningConfig{Provider: "anthropic", APIKeyEnv: "PM_TEST_EMPTY_KEY"}, nil)
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("missing key err=%v want configuration", err)
	}

	_, err = New(config.ReasoningConfig{Provider: "bard"}, nil)
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("unknown provider err=%v", err)
	}

	t.Setenv("PM_TEST_KEY", "sk-test")
	g, err = New(config.ReasoningConfig{Provider: "OpenAI", APIKeyEnv: "PM_TEST_KEY"}, nil)
	if err != nil || g.Name() != "openai" {
		t.Fatalf("openai: g=%v err=%v", g, err)
	}
}

func TestAnthropic_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-test",
			"content":       []map[string]any{{"type": "text", "text": " Fair value sits above the price. "}},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 8},
		})
	}))
	defer srv.Close()

	g := NewAnthropic("sk-test", "claude-test", srv.URL, 100, 5*time.Second)
	got, err := g.Generate(context.Background(), input())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "Fair value sits above the price." {
		t.Fatalf("got=%q", got)
	}
}

func TestOpenAI_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-test",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "Buy the YES side."},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	g := NewOpenAI("sk-test", "gpt-test", srv.URL+"/v1", 0, 5*time.Second)
	got, err := g.Generate(context.Background(), input())
	if err != nil || got != "Buy the YES side." {
		t.Fatalf("got=%q err=%v", got, err)
	}
	if body["model"] != "gpt-test" {
		t.Fatalf("request model=%v", body["model"])
	}
}

func TestOpenAI_ErrorIsReasoningUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewOpenAI("sk-test", "", srv.URL+"/v1", 0, time.Second).Generate(context.Background(), input())
	if !errors.Is(err, apperr.ErrReasoningUnavailable) {
		t.Fatalf("err=%v want reasoning unavailable", err)
	}
}
