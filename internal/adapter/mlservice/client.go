package mlservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
)

const providerLabel = "mlservice"

// Client implements domain.PredictionClient over the external crop
// prediction HTTP service. Each prediction is a single attempt with a
// bounded timeout; a repeated identical call to a stateful or rate-limited
// model is unsafe without idempotency guarantees, so there is no retry.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a prediction service client.
func NewClient(serviceURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		url: serviceURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Predict posts the feature vector and returns the raw response payload.
// The payload shape varies across predictor versions; normalization is the
// caller's concern.
func (c *Client) Predict(ctx context.Context, vec domain.FeatureVector) (json.RawMessage, error) {
	body, err := json.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("serialize feature vector: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderDuration.WithLabelValues(providerLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		return nil, fmt.Errorf("prediction request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		return nil, fmt.Errorf("prediction service error: status %d: %s", resp.StatusCode, payload)
	}

	if !json.Valid(payload) {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, "error").Inc()
		return nil, fmt.Errorf("prediction service returned invalid JSON")
	}

	c.metrics.ProviderRequests.WithLabelValues(providerLabel, "success").Inc()
	return payload, nil
}
