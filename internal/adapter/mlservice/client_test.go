package mlservice

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
)

func testClient(serviceURL string) *Client {
	return &Client{
		url:        serviceURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testVector() domain.FeatureVector {
	return domain.FeatureVector{
		N:           domain.Float(90),
		P:           domain.Float(42),
		K:           domain.Float(43),
		Temperature: domain.Float(26.4),
		Humidity:    domain.Float(71.2),
		PH:          domain.Float(6.5),
		Rainfall:    domain.Float(202.9),
	}
}

func TestClient_Predict_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var vec map[string]*float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&vec))
		require.NotNil(t, vec["N"])
		assert.Equal(t, 90.0, *vec["N"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prediction": "rice", "inputs_received": {"N": 90}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	raw, err := c.Predict(context.Background(), testVector())
	require.NoError(t, err)
	assert.JSONEq(t, `{"prediction": "rice", "inputs_received": {"N": 90}}`, string(raw))
}

func TestClient_Predict_NullsSerializeAsNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"N":null,"P":null,"K":null,"temperature":null,"humidity":null,"ph":7,"rainfall":null}`, string(body))

		_, _ = w.Write([]byte(`{"prediction":"wheat"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Predict(context.Background(), domain.FeatureVector{PH: domain.Float(7)})
	require.NoError(t, err)
}

func TestClient_Predict_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "model not loaded"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Predict(context.Background(), testVector())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestClient_Predict_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>proxy error</html>`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Predict(context.Background(), testVector())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestClient_Predict_SingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Predict(context.Background(), testVector())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "failed predictions are not retried")
}

func TestClient_Predict_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.Predict(context.Background(), testVector())
	require.Error(t, err)
}
