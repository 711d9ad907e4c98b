// Package advisor orchestrates a crop recommendation request: it resolves
// soil and climate inputs concurrently, invokes the external prediction
// service, records the audit trail, and degrades to fixed fallbacks when
// upstreams fail. Only an unknown farm surfaces as an error to the caller.
package advisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
)

// EventPublisher publishes prediction audit events to downstream consumers.
type EventPublisher interface {
	PublishPredictionEvent(ctx context.Context, entry domain.PredictionHistoryEntry) error
}

// Advisor coordinates the recommendation pipeline.
type Advisor struct {
	farms         domain.FarmStore
	soilProviders []domain.SoilProvider
	forecast      domain.ForecastProvider // nil when no weather key is configured
	seasonal      domain.SeasonalProvider
	predictor     domain.PredictionClient
	history       domain.HistoryStore
	events        EventPublisher // nil when the event stream is disabled

	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an Advisor. forecast and events may be nil; the corresponding
// paths then self-heal to synthetic data or skip publishing.
func New(
	farms domain.FarmStore,
	soilProviders []domain.SoilProvider,
	forecast domain.ForecastProvider,
	seasonal domain.SeasonalProvider,
	predictor domain.PredictionClient,
	history domain.HistoryStore,
	events EventPublisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Advisor {
	return &Advisor{
		farms:         farms,
		soilProviders: soilProviders,
		forecast:      forecast,
		seasonal:      seasonal,
		predictor:     predictor,
		history:       history,
		events:        events,
		logger:        logger,
		metrics:       metrics,
	}
}

// GetCropRecommendations runs the full pipeline for a registered farm. It
// returns an error only when the farm does not exist; every external-service
// failure is absorbed by a fallback so the caller always gets advice.
func (a *Advisor) GetCropRecommendations(ctx context.Context, farmID string) ([]domain.CanonicalRecommendation, error) {
	a.metrics.RecommendationRequests.Inc()

	farm, err := a.farms.GetByID(ctx, farmID)
	if err != nil {
		return nil, err
	}

	// Soil and seasonal climate come from unrelated upstreams; resolve them
	// in parallel.
	soilCh := make(chan domain.SoilReading, 1)
	go func() {
		soilCh <- domain.ResolveSoil(ctx, farm.Location, farm.Soil, a.soilProviders, a.logger)
	}()

	seasonal := a.resolveSeasonal(ctx, farm.Location.Lat, farm.Location.Lon)

	soil := <-soilCh
	a.metrics.SoilSourceUsed.WithLabelValues(string(soil.Source)).Inc()

	vec := domain.BuildFeatureVector(soil, &seasonal)

	raw, predErr := a.predict(ctx, vec)
	a.recordAttempt(ctx, farm.ID, vec, raw, predErr)

	if predErr != nil {
		a.logger.Error("prediction service failed, serving fallback advisory",
			"farm_id", farm.ID,
			"error", predErr,
		)
		a.metrics.PredictionFallbacks.Inc()
		return domain.FallbackRecommendations(), nil
	}

	recs := domain.NormalizeRecommendations(raw)
	if len(recs) == 0 {
		a.logger.Error("prediction response not recognized, serving fallback advisory",
			"farm_id", farm.ID,
		)
		a.metrics.PredictionFallbacks.Inc()
		return domain.FallbackRecommendations(), nil
	}
	return recs, nil
}

// GetSeasonalClimate fetches the 90-day aggregate for raw coordinates.
// Unlike the recommendation path, a direct seasonal query surfaces upstream
// failures to the caller.
func (a *Advisor) GetSeasonalClimate(ctx context.Context, lat, lon float64) (domain.SeasonalAggregate, error) {
	if err := (domain.Geo{Lat: lat, Lon: lon}).Validate(); err != nil {
		return domain.SeasonalAggregate{}, err
	}
	return a.seasonal.FetchSeasonal(ctx, lat, lon)
}

// GetSeasonalClimateForFarm fetches the 90-day aggregate for a farm's
// location.
func (a *Advisor) GetSeasonalClimateForFarm(ctx context.Context, farmID string) (domain.SeasonalAggregate, error) {
	farm, err := a.farms.GetByID(ctx, farmID)
	if err != nil {
		return domain.SeasonalAggregate{}, err
	}
	return a.seasonal.FetchSeasonal(ctx, farm.Location.Lat, farm.Location.Lon)
}

// GetForecast returns the short-range forecast for raw coordinates,
// self-healing to the synthetic forecast on any failure.
func (a *Advisor) GetForecast(ctx context.Context, lat, lon float64) []domain.ForecastPoint {
	if err := (domain.Geo{Lat: lat, Lon: lon}).Validate(); err != nil {
		a.metrics.ForecastFallback.Inc()
		return domain.SyntheticForecast()
	}
	return a.fetchForecast(ctx, lat, lon)
}

// GetForecastForFarm returns the short-range forecast for a farm's location.
func (a *Advisor) GetForecastForFarm(ctx context.Context, farmID string) ([]domain.ForecastPoint, error) {
	farm, err := a.farms.GetByID(ctx, farmID)
	if err != nil {
		return nil, err
	}
	return a.fetchForecast(ctx, farm.Location.Lat, farm.Location.Lon), nil
}

// GetHistory returns a farm's prediction history, most recent first. A
// non-positive limit defaults to 20.
func (a *Advisor) GetHistory(ctx context.Context, farmID string, limit int) ([]domain.PredictionHistoryEntry, error) {
	if _, err := a.farms.GetByID(ctx, farmID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return a.history.ListByFarm(ctx, farmID, limit)
}

// resolveSeasonal fetches the 90-day aggregate, degrading to the first
// instant-forecast point repurposed as a pseudo-seasonal reading when the
// seasonal upstream fails.
func (a *Advisor) resolveSeasonal(ctx context.Context, lat, lon float64) domain.SeasonalAggregate {
	agg, err := a.seasonal.FetchSeasonal(ctx, lat, lon)
	if err == nil {
		return agg
	}

	a.logger.Warn("seasonal climate unavailable, degrading to instant forecast",
		"lat", lat,
		"lon", lon,
		"error", err,
	)
	a.metrics.ClimateDegraded.Inc()

	points := a.fetchForecast(ctx, lat, lon)
	return domain.PseudoSeasonal(points[0])
}

// fetchForecast returns live forecast points or the synthetic fallback. It
// never returns an empty slice.
func (a *Advisor) fetchForecast(ctx context.Context, lat, lon float64) []domain.ForecastPoint {
	if a.forecast == nil {
		a.metrics.ForecastFallback.Inc()
		return domain.SyntheticForecast()
	}

	points, err := a.forecast.FetchForecast(ctx, lat, lon)
	if err != nil || len(points) == 0 {
		a.logger.Warn("instant forecast unavailable, serving synthetic forecast",
			"lat", lat,
			"lon", lon,
			"error", err,
		)
		a.metrics.ForecastFallback.Inc()
		return domain.SyntheticForecast()
	}
	return points
}

// predict invokes the external prediction service exactly once.
func (a *Advisor) predict(ctx context.Context, vec domain.FeatureVector) ([]byte, error) {
	start := time.Now()
	raw, err := a.predictor.Predict(ctx, vec)
	a.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		a.metrics.PredictionAttempts.WithLabelValues("error").Inc()
		return nil, err
	}
	a.metrics.PredictionAttempts.WithLabelValues("success").Inc()
	return raw, nil
}

// recordAttempt persists exactly one history entry per predictor invocation,
// success or failure, and publishes it to the event stream when enabled.
// The write uses a detached context so a cancelled request cannot leave a
// gap in the audit trail. Failures here are logged, never surfaced.
func (a *Advisor) recordAttempt(ctx context.Context, farmID string, vec domain.FeatureVector, raw []byte, predErr error) {
	response := raw
	if predErr != nil {
		response = domain.ErrorDescriptor(predErr)
	}
	entry := domain.NewHistoryEntry(farmID, vec, response, predErr == nil)

	writeCtx := context.WithoutCancel(ctx)
	if err := a.history.Insert(writeCtx, &entry); err != nil {
		a.logger.Error("prediction history write failed",
			"farm_id", farmID,
			"entry_id", entry.ID,
			"error", err,
		)
		a.metrics.HistoryWrites.WithLabelValues("error").Inc()
	} else {
		a.metrics.HistoryWrites.WithLabelValues("success").Inc()
	}

	if a.events == nil {
		return
	}
	if err := a.events.PublishPredictionEvent(writeCtx, entry); err != nil {
		a.logger.Error("prediction event publish failed",
			"farm_id", farmID,
			"entry_id", entry.ID,
			"error", err,
		)
		a.metrics.EventsPublished.WithLabelValues("error").Inc()
	} else {
		a.metrics.EventsPublished.WithLabelValues("success").Inc()
	}
}

// IsNotFound reports whether err is the unknown-farm sentinel. Convenience
// for transport layers.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrFarmNotFound)
}
