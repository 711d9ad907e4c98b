package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/crop-advisory-service/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/crop-advisory-service/internal/adapter/kafka"
	"github.com/couchcryptid/crop-advisory-service/internal/adapter/mlservice"
	"github.com/couchcryptid/crop-advisory-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/crop-advisory-service/internal/adapter/openweather"
	"github.com/couchcryptid/crop-advisory-service/internal/adapter/soilcache"
	"github.com/couchcryptid/crop-advisory-service/internal/adapter/soilcard"
	"github.com/couchcryptid/crop-advisory-service/internal/adapter/soilgrids"
	"github.com/couchcryptid/crop-advisory-service/internal/adapter/store"
	"github.com/couchcryptid/crop-advisory-service/internal/advisor"
	"github.com/couchcryptid/crop-advisory-service/internal/config"
	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	// Soil providers in fallback-chain order, each feature-flagged.
	var soilProviders []domain.SoilProvider
	if cfg.SoilCardEnabled {
		soilProviders = append(soilProviders,
			soilcard.NewClient(cfg.SoilCardBaseURL, cfg.SoilCardAPIKey, cfg.SoilTimeout, metrics, logger))
		logger.Info("soil card lookups enabled")
	} else {
		logger.Info("soil card lookups disabled")
	}
	if cfg.SoilGridsEnabled {
		grids := soilgrids.NewClient(cfg.SoilGridsBaseURL, cfg.SoilTimeout, metrics, logger)
		soilProviders = append(soilProviders, soilcache.New(grids, cfg.SoilCacheSize, metrics))
		logger.Info("soilgrids lookups enabled", "cache_size", cfg.SoilCacheSize)
	} else {
		logger.Info("soilgrids lookups disabled")
	}

	var forecast domain.ForecastProvider
	if cfg.WeatherEnabled {
		forecast = openweather.NewClient(cfg.WeatherAPIKey, cfg.WeatherTimeout, metrics, logger)
		logger.Info("live weather enabled", "timeout", cfg.WeatherTimeout)
	} else {
		logger.Info("live weather disabled, synthetic forecast in use")
	}

	seasonal := openmeteo.NewClient(cfg.SeasonalBaseURL, cfg.SeasonalTimeout, metrics, logger)
	predictor := mlservice.NewClient(cfg.MLServiceURL, cfg.MLTimeout, metrics, logger)

	var events advisor.EventPublisher
	var eventWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		eventWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		events = eventWriter
		metrics.EventsEnabled.Set(1)
		logger.Info("prediction event stream enabled", "topic", cfg.KafkaTopic)
	} else {
		metrics.EventsEnabled.Set(0)
		logger.Info("prediction event stream disabled")
	}

	adv := advisor.New(db, soilProviders, forecast, seasonal, predictor, db, events, logger, metrics)

	srv := httpapi.NewServer(cfg.HTTPAddr, adv, db, db, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if eventWriter != nil {
		if err := eventWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("shutdown complete")
}
