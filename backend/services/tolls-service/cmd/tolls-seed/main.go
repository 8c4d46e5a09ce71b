// Command tolls-seed loads a YAML fixture of stations, customers, transponders and options.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"takeatoll/backend/libs/logging"
	libredis "takeatoll/backend/libs/redis"
	app "takeatoll/backend/services/tolls-service/internal/app"
	"takeatoll/backend/services/tolls-service/internal/config"
	"takeatoll/backend/services/tolls-service/internal/password"
	redisstore "takeatoll/backend/services/tolls-service/internal/redis"
	"takeatoll/backend/services/tolls-service/internal/repository"
	"takeatoll/backend/services/tolls-service/internal/seed"
)

func main() {
	file := flag.String("file", "fixtures/seed.yaml", "fixture file")
	flag.Parse()

	logger, err := logging.NewLogger("tolls-seed")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fixture, err := seed.LoadFile(*file)
	if err != nil {
		logger.Fatal("failed to read fixture", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	sqlDB, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer sqlDB.Close()

	writer := repository.NewSeedWriter(sqlDB)
	hasher := password.NewBcryptHasher(cfg.Seed.BcryptCost)
	report, err := seed.Apply(ctx, writer, hasher, fixture, logger)
	if err != nil {
		logger.Fatal("failed to apply fixture", zap.Error(err))
	}

	if !cfg.RedisEnabled() {
		return
	}
	client, err := libredis.NewRedisClient(cfg.RedisOptions())
	if err != nil {
		logger.Warn("station cache not invalidated", zap.Error(err))
		return
	}
	defer client.Close()

	cache := redisstore.NewStationCache(client, repository.NewStationRepository(sqlDB), cfg.Redis.StationTTL, logger)
	for _, id := range report.StationIDs {
		if err := cache.Invalidate(ctx, id); err != nil {
			logger.Warn("station cache invalidate failed", zap.Int64("station_id", id), zap.Error(err))
		}
	}
}
