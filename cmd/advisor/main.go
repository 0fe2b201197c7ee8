package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"predictmax/internal/cache"
	"predictmax/internal/config"
	cronrunner "predictmax/internal/cron"
	"predictmax/internal/db"
	"predictmax/internal/ensemble"
	"predictmax/internal/handler"
	"predictmax/internal/logger"
	"predictmax/internal/normalizer"
	"predictmax/internal/provider"
	"predictmax/internal/reasoning"
	"predictmax/internal/recommend"
	gormrepository "predictmax/internal/repository/gorm"
	"predictmax/internal/risk"
	"predictmax/internal/scanner"
	"predictmax/internal/service"
	"predictmax/internal/source"

	_ "predictmax/docs"
)

// @title predictmax API
// @version 1.0
// @description Prediction-market discovery, analysis and opportunity scanning.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfgPath := os.Getenv("PM_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PM_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Fatal("cache init failed", zap.Error(err))
	}
	if rs, ok := store.(*cache.RedisStore); ok {
		defer rs.Close()
		if err := rs.Ping(ctx); err != nil {
			logger.Warn("redis unreachable; odds lookups will miss the cache", zap.Error(err))
		}
	}

	providers, err := provider.Build(cfg, store, logger)
	if err != nil {
		logger.Fatal("provider init failed", zap.Error(err))
	}
	reasoner, err := reasoning.New(cfg.Reasoning, logger)
	if err != nil {
		logger.Warn("reasoning provider unavailable; using template", zap.Error(err))
		reasoner = recommend.Template{}
	}

	assessor := &risk.Assessor{Config: cfg.Risk, Logger: logger}
	engine := recommend.NewEngine(assessor, reasoner, logger)
	ens := &ensemble.Ensemble{Providers: providers.Providers, Logger: logger}

	clients := source.Clients(cfg.Sources, logger)
	advisor := &service.Advisor{
		Collector: &source.Collector{Clients: clients, Normalizer: normalizer.New(logger), Logger: logger},
		Aliases:   providers.Reference,
		Ensemble:  ens,
		Risk:      assessor,
		Engine:    engine,
		Scanner: &scanner.Scanner{
			Quick:        scanner.QuickScorerFromConfig(cfg.Scanner),
			Deep:         &scanner.PipelineDeepScorer{Ensemble: ens, Risk: assessor, Engine: engine},
			Engine:       engine,
			TopK:         cfg.Scanner.TopK,
			Alternatives: cfg.Scanner.Alternatives,
			Logger:       logger,
		},
		Catalog: service.NewCatalog(),
		Logger:  logger,
	}
	if providers.Odds != nil {
		advisor.Odds = providers.Odds
	}

	var gdb *gorm.DB
	if cfg.DB.Enabled {
		dbConn, err := db.Open(cfg.DB)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)
		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		gdb = dbConn.Gorm
		advisor.Repo = gormrepository.New(gdb)
		if n, err := advisor.Warm(ctx); err != nil {
			logger.Warn("catalog warm-up failed", zap.Error(err))
		} else {
			logger.Info("catalog warmed from storage", zap.Int("markets", n))
		}
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	secret := strings.TrimSpace(os.Getenv(cfg.Auth.JWTSecretEnv))
	if secret == "" {
		logger.Warn("no jwt secret configured; api is unauthenticated", zap.String("env", cfg.Auth.JWTSecretEnv))
	}
	router := handler.NewRouter(handler.RouterOptions{
		Advisor: advisor,
		DB:      gdb,
		Auth:    handler.JWT{Secret: []byte(secret), Issuer: cfg.Auth.Issuer},
		Logger:  logger,
		Swagger: true,
	})

	go func() {
		if _, err := advisor.Refresh(ctx); err != nil {
			logger.Warn("initial catalog refresh failed", zap.Error(err))
		}
	}()

	if cfg.Cron.Enabled {
		runner := cronrunner.New(logger, ctx)
		bankroll := decimal.NewFromFloat(cfg.Risk.DefaultBankrollUSD)
		if err := runner.RegisterAdvisorJobs(cfg.Cron, advisor, bankroll); err != nil {
			logger.Fatal("cron register failed", zap.Error(err))
		}
		runner.Start()
		defer runner.Stop()
	}

	if cfg.Sources.Stream.Enabled {
		stream := source.NewTickerStream(source.TickerStreamOptions{
			URL:     cfg.Sources.Stream.URL,
			Tickers: advisor.StreamTickers(cfg.Sources.Stream.MaxTickers),
			Logger:  logger,
		})
		go func() {
			err := stream.Run(ctx, advisor.ApplyTick)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("ticker stream stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server started", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
