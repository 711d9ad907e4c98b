package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
)

const providerLabel = "openmeteo"

// Client implements domain.SeasonalProvider using the Open-Meteo seasonal
// forecast API. Unlike the instant-forecast path, failures here surface to
// the caller: the 90-day aggregate feeds the predictor's core decision
// variables and must not be silently replaced with synthetic data.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo seasonal climate client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchSeasonal fetches 90 days of daily precipitation, humidity, and
// temperature and reduces them to a seasonal aggregate.
func (c *Client) FetchSeasonal(ctx context.Context, lat, lon float64) (domain.SeasonalAggregate, error) {
	params := url.Values{
		"latitude":      {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":     {strconv.FormatFloat(lon, 'f', -1, 64)},
		"daily":         {"precipitation_sum,relative_humidity_2m_mean,temperature_2m_mean"},
		"forecast_days": {"90"},
	}

	u := c.baseURL + "/v1/seasonal?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.SeasonalAggregate{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderDuration.WithLabelValues(providerLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		return domain.SeasonalAggregate{}, fmt.Errorf("seasonal request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return domain.SeasonalAggregate{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var om response
	if err := json.NewDecoder(resp.Body).Decode(&om); err != nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		return domain.SeasonalAggregate{}, fmt.Errorf("decode response: %w", err)
	}

	if om.Daily == nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "empty").Inc()
		return domain.SeasonalAggregate{}, fmt.Errorf("open-meteo response missing daily series")
	}

	agg := domain.AggregateDailySeries(
		densify(om.Daily.Temperature),
		densify(om.Daily.Humidity),
		densify(om.Daily.Precipitation),
	)
	if agg.SampleDayCount == 0 {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "empty").Inc()
		return domain.SeasonalAggregate{}, fmt.Errorf("open-meteo returned empty daily series")
	}

	if raw, err := json.Marshal(om.Daily); err == nil {
		agg.Raw = raw
	}

	c.metrics.ProviderRequests.WithLabelValues(providerLabel, "success").Inc()
	return agg, nil
}

// densify replaces null samples with 0 while preserving series length, so
// a few missing days do not fail the whole aggregate.
func densify(vals []*float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

// Open-Meteo API response types.

type response struct {
	Daily *daily `json:"daily"`
}

type daily struct {
	Time          []string   `json:"time"`
	Precipitation []*float64 `json:"precipitation_sum"`
	Humidity      []*float64 `json:"relative_humidity_2m_mean"`
	Temperature   []*float64 `json:"temperature_2m_mean"`
}
