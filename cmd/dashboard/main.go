package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/campus-air-dashboard/internal/adapter/airapi"
	httpadapter "github.com/couchcryptid/campus-air-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/campus-air-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/campus-air-dashboard/internal/adapter/sheet"
	"github.com/couchcryptid/campus-air-dashboard/internal/config"
	"github.com/couchcryptid/campus-air-dashboard/internal/dashboard"
	"github.com/couchcryptid/campus-air-dashboard/internal/feed"
	"github.com/couchcryptid/campus-air-dashboard/internal/observability"
	"github.com/couchcryptid/campus-air-dashboard/internal/simulate"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	api := airapi.NewClient(cfg.APIBaseURL, cfg.APITimeout, metrics, logger)
	f := feed.New(api, simulate.New(simulate.WithClock(clock)), feed.Options{
		Simulate:  cfg.SimulateOnFailure,
		LatestTTL: cfg.LatestTTL,
		SeriesTTL: cfg.SeriesTTL,
		CacheSize: cfg.CacheSize,
		Clock:     clock,
	}, metrics, logger)

	dht := sheet.NewCached(sheet.NewClient(cfg.APITimeout, nil, metrics, logger), cfg.DHTTTL, clock, metrics)

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED.
	var publisher dashboard.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSnapshotTopic)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	refresher := dashboard.NewRefresher(f, publisher, cfg.PM25AlertThreshold, cfg.RefreshInterval, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, refresher, httpadapter.Deps{
		Dashboard:     refresher,
		Series:        f,
		DHT:           dht,
		DHTURL:        cfg.DHTSheetURL,
		SeriesMinutes: cfg.SeriesMinutes,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	go func() {
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
