package config

import "testing"

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scanner.TopK != 10 || cfg.Scanner.Alternatives != 2 {
		t.Fatalf("scanner=%+v", cfg.Scanner)
	}
	if cfg.Risk.DefaultBankrollUSD != 10000 {
		t.Fatalf("bankroll=%v want=10000", cfg.Risk.DefaultBankrollUSD)
	}
	if cfg.Cache.Backend != "memory" || cfg.Sources.Kalshi.Timeout.Seconds() != 15 {
		t.Fatalf("cache=%+v kalshi=%+v", cfg.Cache, cfg.Sources.Kalshi)
	}
	if len(cfg.OddsAPI.Sports) == 0 {
		t.Fatalf("odds sports empty")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PM_SCANNER_TOP_K", "4")
	t.Setenv("PM_REASONING_PROVIDER", "anthropic")
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scanner.TopK != 4 {
		t.Fatalf("top_k=%d want=4", cfg.Scanner.TopK)
	}
	if cfg.Reasoning.Provider != "anthropic" {
		t.Fatalf("provider=%s", cfg.Reasoning.Provider)
	}
}
