package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	Ensemble  EnsembleConfig  `mapstructure:"ensemble"`
	OddsAPI   OddsAPIConfig   `mapstructure:"odds_api"`
	Reference ReferenceConfig `mapstructure:"reference"`
	Reasoning ReasoningConfig `mapstructure:"reasoning"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	CatalogRefresh string `mapstructure:"catalog_refresh"`
	Scan           string `mapstructure:"scan"`
}

type SourcesConfig struct {
	Kalshi     SourceConfig `mapstructure:"kalshi"`
	Polymarket SourceConfig `mapstructure:"polymarket"`
	Stream     StreamConfig `mapstructure:"stream"`
}

type SourceConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec int           `mapstructure:"requests_per_sec"`
	MaxElapsed     time.Duration `mapstructure:"max_elapsed"`
	PageLimit      int           `mapstructure:"page_limit"`
	MaxPages       int           `mapstructure:"max_pages"`
}

type StreamConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	MaxTickers int    `mapstructure:"max_tickers"`
}

type CacheConfig struct {
	Backend    string        `mapstructure:"backend"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	Redis      RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RiskConfig struct {
	AbsoluteCeilingUSD float64 `mapstructure:"absolute_ceiling_usd"`
	KellyFractionCap   float64 `mapstructure:"kelly_fraction_cap"`
	DefaultBankrollUSD float64 `mapstructure:"default_bankroll_usd"`
}

type ScannerConfig struct {
	TopK         int     `mapstructure:"top_k"`
	Alternatives int     `mapstructure:"alternatives"`
	MinVolume24h float64 `mapstructure:"min_volume_24h"`
	MaxSpread    float64 `mapstructure:"max_spread"`
	MinMidpoint  float64 `mapstructure:"min_midpoint"`
	MaxMidpoint  float64 `mapstructure:"max_midpoint"`
	MinOddsGap   float64 `mapstructure:"min_odds_gap"`
}

type EnsembleConfig struct {
	DomainWeight       float64 `mapstructure:"domain_weight"`
	ExternalOddsWeight float64 `mapstructure:"external_odds_weight"`
	HistoricalWeight   float64 `mapstructure:"historical_weight"`
}

type OddsAPIConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKeyEnv      string        `mapstructure:"api_key_env"`
	Regions        string        `mapstructure:"regions"`
	Sports         []string      `mapstructure:"sports"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec int           `mapstructure:"requests_per_sec"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

type ReferenceConfig struct {
	Path string `mapstructure:"path"`
}

type ReasoningConfig struct {
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	APIKeyEnv string        `mapstructure:"api_key_env"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int64         `mapstructure:"max_tokens"`
}

type AuthConfig struct {
	JWTSecretEnv string `mapstructure:"jwt_secret_env"`
	Issuer       string `mapstructure:"issuer"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.enabled", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.catalog_refresh", "@every 5m")
	v.SetDefault("cron.scan", "@every 15m")

	v.SetDefault("sources.kalshi.enabled", true)
	v.SetDefault("sources.kalshi.base_url", "https://api.elections.kalshi.com/trade-api/v2")
	v.SetDefault("sources.kalshi.timeout", "15s")
	v.SetDefault("sources.kalshi.requests_per_sec", 5)
	v.SetDefault("sources.kalshi.max_elapsed", "30s")
	v.SetDefault("sources.kalshi.page_limit", 200)
	v.SetDefault("sources.kalshi.max_pages", 5)
	v.SetDefault("sources.polymarket.enabled", true)
	v.SetDefault("sources.polymarket.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("sources.polymarket.timeout", "15s")
	v.SetDefault("sources.polymarket.requests_per_sec", 5)
	v.SetDefault("sources.polymarket.max_elapsed", "30s")
	v.SetDefault("sources.polymarket.page_limit", 200)
	v.SetDefault("sources.polymarket.max_pages", 5)
	v.SetDefault("sources.stream.enabled", false)
	v.SetDefault("sources.stream.url", "")
	v.SetDefault("sources.stream.max_tickers", 100)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.default_ttl", "5m")
	v.SetDefault("cache.redis.addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("risk.absolute_ceiling_usd", 1000)
	v.SetDefault("risk.kelly_fraction_cap", 0.25)
	v.SetDefault("risk.default_bankroll_usd", 10000)

	v.SetDefault("scanner.top_k", 10)
	v.SetDefault("scanner.alternatives", 2)
	v.SetDefault("scanner.min_volume_24h", 100)
	v.SetDefault("scanner.max_spread", 0.10)
	v.SetDefault("scanner.min_midpoint", 0.05)
	v.SetDefault("scanner.max_midpoint", 0.95)
	v.SetDefault("scanner.min_odds_gap", 0.05)

	v.SetDefault("ensemble.domain_weight", 0.35)
	v.SetDefault("ensemble.external_odds_weight", 0.4)
	v.SetDefault("ensemble.historical_weight", 0.15)

	v.SetDefault("odds_api.enabled", false)
	v.SetDefault("odds_api.base_url", "https://api.the-odds-api.com/v4")
	v.SetDefault("odds_api.api_key_env", "ODDS_API_KEY")
	v.SetDefault("odds_api.regions", "us")
	v.SetDefault("odds_api.sports", []string{"americanfootball_nfl", "basketball_nba", "baseball_mlb", "icehockey_nhl"})
	v.SetDefault("odds_api.timeout", "10s")
	v.SetDefault("odds_api.requests_per_sec", 2)
	v.SetDefault("odds_api.cache_ttl", "10m")

	v.SetDefault("reference.path", "")

	v.SetDefault("reasoning.provider", "none")
	v.SetDefault("reasoning.model", "")
	v.SetDefault("reasoning.api_key_env", "")
	v.SetDefault("reasoning.base_url", "")
	v.SetDefault("reasoning.timeout", "20s")
	v.SetDefault("reasoning.max_tokens", 400)

	v.SetDefault("auth.jwt_secret_env", "PM_JWT_SECRET")
	v.SetDefault("auth.issuer", "predictmax")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
