package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/aegis-watch/internal/advisor"
	"github.com/wonny/aegis-watch/internal/brain"
	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/external/alpaca"
	"github.com/wonny/aegis-watch/internal/external/finviz"
	"github.com/wonny/aegis-watch/internal/external/fmp"
	"github.com/wonny/aegis-watch/internal/external/yahoo"
	"github.com/wonny/aegis-watch/internal/gateway"
	"github.com/wonny/aegis-watch/internal/notify"
	"github.com/wonny/aegis-watch/internal/policy"
	"github.com/wonny/aegis-watch/internal/premarket"
	"github.com/wonny/aegis-watch/internal/selection"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
	"github.com/wonny/aegis-watch/pkg/config"
	"github.com/wonny/aegis-watch/pkg/database"
	"github.com/wonny/aegis-watch/pkg/httputil"
	"github.com/wonny/aegis-watch/pkg/logger"
	"github.com/wonny/aegis-watch/pkg/metrics"
	"github.com/wonny/aegis-watch/pkg/redis"
)

// Local (per-process) upstream limits; shared quotas live in pkg/redis
const (
	finvizRPS   = 1.0
	finvizBurst = 2
	alpacaRPS   = 3.0
	alpacaBurst = 6
)

// app holds the wired process dependencies shared by the commands
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Registry
	strategy *strategyconfig.Config

	db    *database.DB
	redis *redis.Client

	repo         contracts.PickRepository
	premarket    *premarket.Service
	orchestrator *brain.Orchestrator
}

// loadBase reads configuration, the strategy policy and the logger
func loadBase() (*config.Config, *logger.Logger, *strategyconfig.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if strategyFile != "" {
		cfg.StrategyFile = strategyFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	strategy, fromFile, err := strategyconfig.LoadOrDefault(cfg.StrategyFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load strategy %s: %w", cfg.StrategyFile, err)
	}
	if !fromFile {
		log.WithField("path", cfg.StrategyFile).Warn("Strategy file not found, using built-in policy")
	}

	return cfg, log, strategy, nil
}

// newStorage opens the pick store; development without DATABASE_URL falls back to memory
func newStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.DB, contracts.PickRepository, error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, picks are kept in memory only")
		return nil, selection.NewMemoryRepository(), nil
	}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}

	log.Info("Connected to database")
	return db, selection.NewRepository(db.Pool), nil
}

// newApp wires every collaborator of the selection pipeline
func newApp(ctx context.Context) (*app, error) {
	cfg, log, strategy, err := loadBase()
	if err != nil {
		return nil, err
	}

	var reg *metrics.Registry
	if cfg.MetricsEnabled {
		reg = metrics.New()
	}

	loc, err := cfg.Premarket.Location()
	if err != nil {
		return nil, err
	}

	// 1. Storage
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	db, repo, err := newStorage(ctx, cfg, log)
	if err != nil {
		rc.Close()
		return nil, err
	}

	// 2. Upstream clients
	limiter := redis.NewRateLimiter(rc, "ratelimit")
	fmpClient := fmp.NewClient(
		httputil.New(cfg, log).WithRateLimiter(limiter, redis.FMPRateLimit),
		cfg.FMP.BaseURL, cfg.FMP.APIKey, log,
	)
	// 여러 인스턴스 공용 쿼터 + 프로세스 내 버스트 제한
	finvizClient := finviz.NewClient(
		httputil.New(cfg, log).
			WithRateLimiter(limiter, redis.FinvizRateLimit).
			WithLocalLimit(finvizRPS, finvizBurst),
		cfg.Finviz.BaseURL, log,
	)
	alpacaClient := alpaca.NewClient(cfg.Alpaca, log)
	yahooClient := yahoo.NewClient(log)

	// 3. Gateway: provider order per feature
	gw := gateway.New(redis.NewCache(rc, "watch"), reg, loc, log).
		WithSourceLimit("alpaca", alpacaRPS, alpacaBurst)

	if fmpClient.Enabled() {
		gw.WithProfileSource("fmp", fmpClient.Profile).
			WithRatiosSource("fmp", fmpClient.Ratios).
			WithAvgVolumeSource("fmp", fmpClient.AvgVolume).
			WithQuoteSource("fmp", fmpClient.Quote).
			WithHeadlineSource("fmp", fmpClient.Headlines)
	} else {
		log.Warn("FMP_API_KEY not set, profile and ratios fall back to secondary sources")
	}
	if cfg.Finviz.Enabled {
		gw.WithProfileSource("finviz", finvizClient.Profile).
			WithAvgVolumeSource("finviz", finvizClient.AvgVolume)
	}
	gw.WithProfileSource("alpaca", alpacaClient.Profile).
		WithAvgVolumeSource("alpaca", alpacaClient.AvgVolume).
		WithQuoteSource("alpaca", alpacaClient.Quote).
		WithHeadlineSource("alpaca", alpacaClient.Headlines)
	if cfg.Yahoo.Enabled {
		gw.WithProfileSource("yahoo", yahooClient.Profile).
			WithAvgVolumeSource("yahoo", yahooClient.AvgVolume).
			WithQuoteSource("yahoo", yahooClient.Quote)
	}
	if cfg.Finviz.Enabled {
		gw.WithQuoteSource("finviz", finvizClient.Quote).
			WithHeadlineSource("finviz", finvizClient.Headlines)
	}

	// 4. Premarket cache (Alpaca minute bars)
	pm, err := premarket.NewService(premarket.NewCache(), alpacaClient, cfg.Premarket, strategy.Premarket, log, reg)
	if err != nil {
		closeStorage(db, rc)
		return nil, fmt.Errorf("premarket service: %w", err)
	}

	// 5. Advisor: 키가 없으면 요청 시점에 ConfigurationMissing
	provider, err := advisor.NewProvider(ctx, cfg.Advisor)
	var missing *contracts.ConfigMissingError
	switch {
	case errors.As(err, &missing):
		log.WithField("setting", missing.Setting).Warn("Advisor not configured, selection requests will be refused")
		provider = nil
	case err != nil:
		closeStorage(db, rc)
		return nil, fmt.Errorf("advisor provider: %w", err)
	}

	// 6. Service-to-service calls, no retry
	internalHTTP := httputil.New(cfg, log).DisableRetry()

	var notifier contracts.Notifier
	if cfg.Internal.TrackerEnabled {
		notifier = notify.NewTrackerNotifier(internalHTTP, cfg.Internal.BaseURL, cfg.Internal.TrackerTimeout, log)
	}

	orchestrator, err := brain.NewOrchestrator(brain.Deps{
		Policy:          strategy,
		Gateway:         gw,
		Premarket:       pm,
		Advisor:         advisor.NewService(provider, cfg.Advisor.Timeout, log, reg),
		Pressure:        policy.NewPressureClient(internalHTTP, cfg.Internal.BaseURL),
		Repository:      repo,
		Notifier:        notifier,
		TiebreakTimeout: cfg.Internal.TiebreakTimeout,
	}, log, reg)
	if err != nil {
		closeStorage(db, rc)
		return nil, err
	}

	return &app{
		cfg:          cfg,
		log:          log,
		metrics:      reg,
		strategy:     strategy,
		db:           db,
		redis:        rc,
		repo:         repo,
		premarket:    pm,
		orchestrator: orchestrator,
	}, nil
}

// Close releases the storage connections
func (a *app) Close() {
	closeStorage(a.db, a.redis)
}

func closeStorage(db *database.DB, rc *redis.Client) {
	if db != nil {
		db.Close()
	}
	if rc != nil {
		rc.Close()
	}
}
