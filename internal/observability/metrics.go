package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// advisory service.
type Metrics struct {
	RecommendationRequests prometheus.Counter
	PredictionAttempts     *prometheus.CounterVec // labels: outcome={success,error}
	PredictionFallbacks    prometheus.Counter
	PredictionDuration     prometheus.Histogram
	ClimateDegraded        prometheus.Counter

	// External provider metrics.
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={success,error,empty}
	ProviderDuration *prometheus.HistogramVec // labels: provider

	// Soil resolution metrics.
	SoilCache        *prometheus.CounterVec // labels: result={hit,miss}
	SoilSourceUsed   *prometheus.CounterVec // labels: source
	HistoryWrites    *prometheus.CounterVec // labels: outcome={success,error}
	EventsPublished  *prometheus.CounterVec // labels: outcome={success,error}
	EventsEnabled    prometheus.Gauge
	ForecastFallback prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RecommendationRequests,
		m.PredictionAttempts,
		m.PredictionFallbacks,
		m.PredictionDuration,
		m.ClimateDegraded,
		m.ProviderRequests,
		m.ProviderDuration,
		m.SoilCache,
		m.SoilSourceUsed,
		m.HistoryWrites,
		m.EventsPublished,
		m.EventsEnabled,
		m.ForecastFallback,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecommendationRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crop_advisor",
			Name:      "recommendation_requests_total",
			Help:      "Total crop recommendation requests handled.",
		}),
		PredictionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crop_advisor",
			Name:      "prediction_attempts_total",
			Help:      "Prediction service invocations by outcome.",
		}, []string{"outcome"}),
		PredictionFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crop_advisor",
			Name:      "prediction_fallbacks_total",
			Help:      "Requests answered with the fixed fallback recommendation set.",
		}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crop_advisor",
			Name:      "prediction_duration_seconds",
			Help:      "Duration of external prediction service calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ClimateDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crop_advisor",
			Name:      "climate_degraded_total",
			Help:      "Requests where the seasonal aggregate degraded to an instant-forecast point.",
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crop_advisor",
			Name:      "provider_requests_total",
			Help:      "External provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crop_advisor",
			Name:      "provider_request_duration_seconds",
			Help:      "External provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		SoilCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crop_advisor",
			Name:      "soil_cache_total",
			Help:      "Soil lookup cache results.",
		}, []string{"result"}),
		SoilSourceUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crop_advisor",
			Name:      "soil_source_used_total",
			Help:      "Which link of the soil fallback chain served each request.",
		}, []string{"source"}),
		HistoryWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crop_advisor",
			Name:      "history_writes_total",
			Help:      "Prediction history writes by outcome.",
		}, []string{"outcome"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crop_advisor",
			Name:      "prediction_events_published_total",
			Help:      "Prediction audit events published to Kafka by outcome.",
		}, []string{"outcome"}),
		EventsEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crop_advisor",
			Name:      "prediction_events_enabled",
			Help:      "1 when the Kafka prediction event stream is enabled, 0 otherwise.",
		}),
		ForecastFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crop_advisor",
			Name:      "forecast_fallbacks_total",
			Help:      "Instant-forecast requests served with the synthetic forecast.",
		}),
	}
}
