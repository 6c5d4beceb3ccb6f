package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"speech-analytics-pipeline/internal/app"
	"speech-analytics-pipeline/internal/config"
	"speech-analytics-pipeline/internal/observability/logging"
	"speech-analytics-pipeline/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load() // optional .env

	cfg, err := config.Load()
	if err != nil {
		logging.Init(logging.DefaultConfig())
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Observability.LogLevel
	logCfg.Format = cfg.Observability.LogFormat
	logCfg.Service = cfg.Service.Name
	logging.Init(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, metrics.DefaultMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build application")
	}

	runErr := application.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	application.Shutdown(shutdownCtx)

	if runErr != nil {
		log.Error().Err(runErr).Msg("Worker stopped with error")
		os.Exit(1)
	}
}
