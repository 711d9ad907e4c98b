package openweather

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

const providerLabel = "openweather"

// Client implements domain.ForecastProvider using the OpenWeatherMap
// 5-day/3-hour forecast API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap forecast client.
func NewClient(apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.openweathermap.org/data/2.5/forecast",
		metrics: metrics,
		logger:  logger,
	}
}

// FetchForecast returns normalized 3-hourly forecast points for the given
// coordinates.
func (c *Client) FetchForecast(ctx context.Context, lat, lon float64) ([]domain.ForecastPoint, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', -1, 64)},
		"units": {"metric"},
		"appid": {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderDuration.WithLabelValues(providerLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	var owm response
	if err := json.NewDecoder(resp.Body).Decode(&owm); err != nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(owm.List) == 0 {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "empty").Inc()
		return nil, fmt.Errorf("openweather returned no forecast points")
	}

	points := make([]domain.ForecastPoint, 0, len(owm.List))
	for _, e := range owm.List {
		condition := "Unknown"
		if len(e.Weather) > 0 {
			condition = e.Weather[0].Main
			if condition == "" {
				condition = e.Weather[0].Description
			}
		}
		points = append(points, domain.NewForecastPoint(
			time.Unix(e.Dt, 0).UTC(),
			e.Main.Temp,
			e.Main.Humidity,
			e.Rain.OneHour,
			e.Rain.ThreeHour,
			e.Wind.Speed,
			condition,
		))
	}

	c.metrics.ProviderRequests.WithLabelValues(providerLabel, "success").Inc()
	return points, nil
}

// OpenWeatherMap API response types.

type response struct {
	List []entry `json:"list"`
	City city    `json:"city"`
}

type entry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"` // m/s
	} `json:"wind"`
	Rain struct {
		OneHour   *float64 `json:"1h"`
		ThreeHour *float64 `json:"3h"`
	} `json:"rain"`
}

type city struct {
	Name string `json:"name"`
}
