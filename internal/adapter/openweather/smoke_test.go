//go:build weather

package openweather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
)

// These tests hit the real OpenWeatherMap API and require a valid
// WEATHER_API_KEY env var.
// Run with: go test -tags=weather ./internal/adapter/openweather/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	key := os.Getenv("WEATHER_API_KEY")
	if key == "" {
		t.Fatal("WEATHER_API_KEY must be set to run smoke tests")
	}
	return &Client{
		apiKey:     key,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://api.openweathermap.org/data/2.5/forecast",
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSmoke_FetchForecast(t *testing.T) {
	c := smokeClient(t)

	// New Delhi coordinates.
	points, err := c.FetchForecast(context.Background(), 28.61, 77.21)
	require.NoError(t, err)
	require.NotEmpty(t, points)

	for _, p := range points {
		assert.False(t, p.Synthetic)
		assert.False(t, p.Time.IsZero())
		assert.NotEmpty(t, p.Condition)
		assert.GreaterOrEqual(t, p.HumidityPercent, 0.0)
		assert.LessOrEqual(t, p.HumidityPercent, 100.0)
		assert.GreaterOrEqual(t, p.WindSpeedKmh, 0.0)
		assert.Contains(t, []domain.RainSeverity{
			domain.RainSeverityNone,
			domain.RainSeverityModerate,
			domain.RainSeverityHigh,
		}, p.Severity)
	}
}
