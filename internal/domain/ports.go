package domain

import (
	"context"
	"encoding/json"
)

// FarmStore looks up registered farm plots.
type FarmStore interface {
	// GetByID returns ErrFarmNotFound for unknown IDs.
	GetByID(ctx context.Context, id string) (FarmPlot, error)
}

// SoilProvider looks up soil composition by coordinates.
// A nil reading with a nil error means the provider has no data there.
type SoilProvider interface {
	Lookup(ctx context.Context, lat, lon float64) (*SoilReading, error)
}

// ForecastProvider fetches a normalized short-range forecast.
type ForecastProvider interface {
	FetchForecast(ctx context.Context, lat, lon float64) ([]ForecastPoint, error)
}

// SeasonalProvider fetches a 90-day seasonal climate aggregate.
type SeasonalProvider interface {
	FetchSeasonal(ctx context.Context, lat, lon float64) (SeasonalAggregate, error)
}

// PredictionClient invokes the external crop prediction service and returns
// its raw, unnormalized response payload.
type PredictionClient interface {
	Predict(ctx context.Context, vec FeatureVector) (json.RawMessage, error)
}

// HistoryStore persists the append-only prediction audit trail.
type HistoryStore interface {
	Insert(ctx context.Context, entry *PredictionHistoryEntry) error
	// ListByFarm returns entries ordered by creation time descending,
	// limited to the requested count.
	ListByFarm(ctx context.Context, farmID string, limit int) ([]PredictionHistoryEntry, error)
}
