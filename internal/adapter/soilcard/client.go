package soilcard

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

const providerLabel = "soilcard"

// Client implements domain.SoilProvider against the government Soil Health
// Card API. A 404 or an empty record means no card exists for the
// coordinates and is reported as absent, not as an error.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Soil Health Card lookup client.
func NewClient(baseURL, apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Lookup fetches the official soil card record for the given coordinates.
func (c *Client) Lookup(ctx context.Context, lat, lon float64) (*domain.SoilReading, error) {
	params := url.Values{
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', -1, 64)},
		"apiKey": {c.apiKey},
	}

	u := c.baseURL + "/api/getdata?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderDuration.WithLabelValues(providerLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		return nil, fmt.Errorf("soil card request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "empty").Inc()
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("soil card API error: status %d: %s", resp.StatusCode, body)
	}

	var card response
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if card.Data == nil || card.Data.empty() {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "empty").Inc()
		return nil, nil
	}

	c.metrics.ProviderRequests.WithLabelValues(providerLabel, "success").Inc()
	return &domain.SoilReading{
		Nitrogen:      card.Data.Nitrogen,
		Phosphorus:    card.Data.Phosphorus,
		Potassium:     card.Data.Potassium,
		PH:            card.Data.PH,
		OrganicCarbon: card.Data.OrganicCarbon,
		Source:        domain.SoilSourceOfficialCard,
	}, nil
}

// Soil Health Card API response types.

type response struct {
	Data *record `json:"data"`
}

type record struct {
	Nitrogen      *float64 `json:"nitrogen"`
	Phosphorus    *float64 `json:"phosphorus"`
	Potassium     *float64 `json:"potassium"`
	PH            *float64 `json:"ph"`
	OrganicCarbon *float64 `json:"organic_carbon"`
}

func (r *record) empty() bool {
	return r.Nitrogen == nil && r.Phosphorus == nil && r.Potassium == nil && r.PH == nil
}
