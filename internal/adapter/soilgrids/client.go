package soilgrids

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

const providerLabel = "soilgrids"

// Client implements domain.SoilProvider against the ISRIC SoilGrids API,
// which serves satellite-derived soil property grids. SoilGrids reports
// total nitrogen, pH, and organic carbon; phosphorus and potassium are not
// modeled and stay unknown in the returned reading.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a SoilGrids lookup client.
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

// Lookup queries the topsoil layer properties at the given coordinates.
func (c *Client) Lookup(ctx context.Context, lat, lon float64) (*domain.SoilReading, error) {
	params := url.Values{
		"lat":      {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":      {strconv.FormatFloat(lon, 'f', -1, 64)},
		"property": {"nitrogen", "phh2o", "soc"},
		"depth":    {"0-5cm"},
		"value":    {"mean"},
	}

	u := c.baseURL + "/soilgrids/v2.0/properties/query?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderDuration.WithLabelValues(providerLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		return nil, fmt.Errorf("soilgrids request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("soilgrids API error: status %d: %s", resp.StatusCode, body)
	}

	var grid response
	if err := json.NewDecoder(resp.Body).Decode(&grid); err != nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	reading := domain.SoilReading{Source: domain.SoilSourceSatellite}
	for _, layer := range grid.Properties.Layers {
		mean := layer.topMean()
		if mean == nil {
			continue
		}
		// Means arrive scaled by the layer's d_factor (e.g. pH*10).
		v := *mean / float64(layer.UnitMeasure.DFactor)
		switch layer.Name {
		case "nitrogen":
			reading.Nitrogen = domain.Float(v)
		case "phh2o":
			reading.PH = domain.Float(v)
		case "soc":
			reading.OrganicCarbon = domain.Float(v)
		}
	}

	if reading.Nitrogen == nil && reading.PH == nil && reading.OrganicCarbon == nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "empty").Inc()
		return nil, nil
	}

	c.metrics.ProviderRequests.WithLabelValues(providerLabel, "success").Inc()
	return &reading, nil
}

// SoilGrids API response types.

type response struct {
	Properties struct {
		Layers []layer `json:"layers"`
	} `json:"properties"`
}

type layer struct {
	Name        string `json:"name"`
	UnitMeasure struct {
		DFactor int `json:"d_factor"`
	} `json:"unit_measure"`
	Depths []struct {
		Values struct {
			Mean *float64 `json:"mean"`
		} `json:"values"`
	} `json:"depths"`
}

func (l layer) topMean() *float64 {
	if len(l.Depths) == 0 || l.UnitMeasure.DFactor == 0 {
		return nil
	}
	return l.Depths[0].Values.Mean
}
