package commands

import (
	"context"
	"log/slog"
	"moodlefetch/internal/components/telemetry"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func initSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

func newZapLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// setupTelemetry picks the logging backend, and starts exporting traces when
// an otlp endpoint is configured. The returned func flushes both.
func setupTelemetry(ctx context.Context, cfg Config) (telemetry.API, func(), error) {
	initSlog(cfg.Verbose)

	tracing, err := telemetry.SetupTracing(ctx, "moodlefetch", cfg.Otlp)
	if err != nil {
		return nil, nil, err
	}
	shutdownTracing := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := tracing.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush traces", "err", err)
		}
	}

	if cfg.LogBackend != "zap" {
		return telemetry.SlogAPI{}, shutdownTracing, nil
	}

	logger, err := newZapLogger(cfg.Verbose)
	if err != nil {
		shutdownTracing()
		return nil, nil, err
	}
	return telemetry.NewZapAPI(logger), func() {
		_ = logger.Sync()
		shutdownTracing()
	}, nil
}
