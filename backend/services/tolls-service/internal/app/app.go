package app

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"takeatoll/backend/libs/metrics"
	libredis "takeatoll/backend/libs/redis"
	"takeatoll/backend/services/tolls-service/internal/config"
	"takeatoll/backend/services/tolls-service/internal/db"
	httpserver "takeatoll/backend/services/tolls-service/internal/http"
	"takeatoll/backend/services/tolls-service/internal/http/handlers"
	redisstore "takeatoll/backend/services/tolls-service/internal/redis"
	"takeatoll/backend/services/tolls-service/internal/repository"
	"takeatoll/backend/services/tolls-service/internal/service"
	"takeatoll/backend/services/tolls-service/internal/ws"
)

// App wires tolls-service dependencies.
type App struct {
	server      *httpserver.Server
	billing     *service.BillingService
	cfg         *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// OpenDatabase connects to Postgres and applies the schema when configured to.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN, cfg.PoolOptions())
	if err != nil {
		return nil, err
	}
	if cfg.Database.Migrate {
		if err := db.Migrate(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}
	return sqlDB, nil
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	metrics.Init()

	stationRepo := repository.NewStationRepository(sqlDB)
	transponderRepo := repository.NewTransponderRepository(sqlDB)
	optionRepo := repository.NewConfigOptionRepository(sqlDB)
	segmentRepo := repository.NewSegmentRepository(sqlDB)
	billingRepo := repository.NewBillingRepository(sqlDB)

	var (
		stations    service.StationFinder = stationRepo
		redisClient *redis.Client
	)
	if cfg.RedisEnabled() {
		redisClient, err = libredis.NewRedisClient(cfg.RedisOptions())
		if err != nil {
			sqlDB.Close()
			return nil, err
		}
		stations = redisstore.NewStationCache(redisClient, stationRepo, cfg.Redis.StationTTL, logger)
	}

	costs := service.NewCostService(stations, optionRepo, cfg.Ledger.PriceOption)
	ledger := service.NewLedgerService(segmentRepo, costs, cfg.Scope(), logger)
	hub := ws.NewHub(logger)
	ledger.SetPublisher(hub)
	dispatcher := service.NewDispatcher(stations, transponderRepo, ledger, logger)
	billing := service.NewBillingService(billingRepo, logger)

	feed := ws.NewServer(hub, cfg.Feed.WriteTimeout, cfg.Feed.PingInterval, logger)

	routes := httpserver.Routes{
		Passthroughs: handlers.NewPassthroughsHandler(dispatcher, logger).Store,
		Billing:      handlers.NewBillingHandler(billing, logger).Totals,
		Feed:         feed.HandleWS,
		Health:       handlers.NewHealthHandler(sqlDB),
		Metrics:      metrics.Handler(),
	}

	router := httpserver.NewRouter(routes, logger)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)
	server.RegisterOnShutdown(hub.CloseAll)

	logger.Info("tolls service configured",
		zap.String("open_segment_scope", string(ledger.Scope())),
		zap.Bool("station_cache", redisClient != nil),
		zap.Duration("billing_interval", cfg.Billing.Interval),
	)

	return &App{
		server:      server,
		billing:     billing,
		cfg:         cfg,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run serves HTTP and the periodic billing loop until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.billing.RunPeriodic(ctx, a.cfg.Billing.Interval, a.cfg.Billing.Period)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
