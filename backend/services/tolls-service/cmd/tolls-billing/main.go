// Command tolls-billing prints or exports the amount due per customer for a period.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"takeatoll/backend/libs/logging"
	"takeatoll/backend/libs/metrics"
	app "takeatoll/backend/services/tolls-service/internal/app"
	"takeatoll/backend/services/tolls-service/internal/config"
	"takeatoll/backend/services/tolls-service/internal/export"
	"takeatoll/backend/services/tolls-service/internal/repository"
	"takeatoll/backend/services/tolls-service/internal/service"
)

func main() {
	today := time.Now().UTC().Format(service.DateLayout)
	start := flag.String("start", today, "first billed day (YYYY-MM-DD)")
	end := flag.String("end", today, "last billed day, included (YYYY-MM-DD)")
	format := flag.String("format", "json", "output format: json, xlsx or pdf")
	out := flag.String("out", "", "output file (default stdout for json, generated name otherwise)")
	flag.Parse()

	logger, err := logging.NewLogger("tolls-billing")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(logger, *start, *end, *format, *out); err != nil {
		logger.Fatal("billing failed", zap.Error(err))
	}
}

func run(logger *zap.Logger, startRaw, endRaw, formatRaw, out string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format, err := export.ParseFormat(formatRaw)
	if err != nil {
		return err
	}
	start, end, err := service.ParsePeriod(startRaw, endRaw)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Database.Migrate = false
	sqlDB, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	metrics.Init()
	billing := service.NewBillingService(repository.NewBillingRepository(sqlDB), logger)
	stmt, err := billing.Statement(ctx, start, end)
	if err != nil {
		return err
	}

	data, err := export.Render(stmt, format)
	if err != nil {
		return err
	}

	if out == "" && format == export.FormatJSON {
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}
	if out == "" {
		out = format.FileName(stmt)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("billing statement written",
		zap.String("file", out),
		zap.Int("customers", len(stmt.Lines)),
		zap.Float64("total", stmt.Total),
	)
	return nil
}
