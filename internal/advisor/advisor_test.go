package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testFarm = domain.FarmPlot{
	ID:       "farm-1",
	UserID:   "user-1",
	Name:     "Najafgarh Wheat Plot",
	Location: domain.Geo{Lat: 28.61, Lon: 77.21},
	Soil:     &domain.DeclaredSoil{Nitrogen: 45, Phosphorus: 30, Potassium: 35, PH: 6.5},
}

type mockFarmStore struct {
	farms map[string]domain.FarmPlot
}

func (m *mockFarmStore) GetByID(_ context.Context, id string) (domain.FarmPlot, error) {
	farm, ok := m.farms[id]
	if !ok {
		return domain.FarmPlot{}, domain.ErrFarmNotFound
	}
	return farm, nil
}

type mockSoilProvider struct {
	reading *domain.SoilReading
	err     error
}

func (m *mockSoilProvider) Lookup(_ context.Context, _, _ float64) (*domain.SoilReading, error) {
	return m.reading, m.err
}

type mockForecast struct {
	points []domain.ForecastPoint
	err    error
	calls  int
}

func (m *mockForecast) FetchForecast(_ context.Context, _, _ float64) ([]domain.ForecastPoint, error) {
	m.calls++
	return m.points, m.err
}

type mockSeasonal struct {
	agg   domain.SeasonalAggregate
	err   error
	calls int
}

func (m *mockSeasonal) FetchSeasonal(_ context.Context, _, _ float64) (domain.SeasonalAggregate, error) {
	m.calls++
	return m.agg, m.err
}

type mockPredictor struct {
	response json.RawMessage
	err      error
	calls    int
	lastVec  domain.FeatureVector
}

func (m *mockPredictor) Predict(_ context.Context, vec domain.FeatureVector) (json.RawMessage, error) {
	m.calls++
	m.lastVec = vec
	return m.response, m.err
}

type mockHistory struct {
	entries []domain.PredictionHistoryEntry
	ctxErrs []error // ctx.Err() observed at insert time
	err     error
}

func (m *mockHistory) Insert(ctx context.Context, entry *domain.PredictionHistoryEntry) error {
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockHistory) ListByFarm(_ context.Context, farmID string, limit int) ([]domain.PredictionHistoryEntry, error) {
	var out []domain.PredictionHistoryEntry
	for _, e := range m.entries {
		if e.FarmID == farmID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockPublisher struct {
	published []domain.PredictionHistoryEntry
	err       error
}

func (m *mockPublisher) PublishPredictionEvent(_ context.Context, entry domain.PredictionHistoryEntry) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, entry)
	return nil
}

type fixture struct {
	advisor   *Advisor
	farms     *mockFarmStore
	soil      *mockSoilProvider
	forecast  *mockForecast
	seasonal  *mockSeasonal
	predictor *mockPredictor
	history   *mockHistory
	events    *mockPublisher
}

func newFixture() *fixture {
	f := &fixture{
		farms: &mockFarmStore{farms: map[string]domain.FarmPlot{"farm-1": testFarm}},
		soil: &mockSoilProvider{reading: &domain.SoilReading{
			Nitrogen:   domain.Float(120),
			Phosphorus: domain.Float(40),
			Potassium:  domain.Float(60),
			PH:         domain.Float(6.4),
			Source:     domain.SoilSourceOfficialCard,
		}},
		forecast: &mockForecast{points: []domain.ForecastPoint{{
			Time:            time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
			TemperatureC:    29,
			HumidityPercent: 68,
			PrecipitationMM: 20,
			Severity:        domain.RainSeverityModerate,
		}}},
		seasonal: &mockSeasonal{agg: domain.SeasonalAggregate{
			Temperature90DayAvg: domain.Float(26.4),
			Humidity90DayAvg:    domain.Float(71.2),
			Rainfall90DaySum:    domain.Float(412.5),
			SampleDayCount:      90,
		}},
		predictor: &mockPredictor{response: json.RawMessage(`[{"crop":"Rice","confidence":0.85}]`)},
		history:   &mockHistory{},
		events:    &mockPublisher{},
	}
	f.advisor = New(
		f.farms,
		[]domain.SoilProvider{f.soil},
		f.forecast,
		f.seasonal,
		f.predictor,
		f.history,
		f.events,
		discardLogger(),
		observability.NewMetricsForTesting(),
	)
	return f
}

func TestGetCropRecommendations_HappyPath(t *testing.T) {
	f := newFixture()

	recs, err := f.advisor.GetCropRecommendations(context.Background(), "farm-1")

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Rice", recs[0].CropName)
	assert.Equal(t, 85, recs[0].ConfidenceScore)

	// Feature vector fuses resolved soil with the seasonal aggregate.
	require.NotNil(t, f.predictor.lastVec.N)
	assert.Equal(t, 120.0, *f.predictor.lastVec.N)
	require.NotNil(t, f.predictor.lastVec.Temperature)
	assert.Equal(t, 26.4, *f.predictor.lastVec.Temperature)
	require.NotNil(t, f.predictor.lastVec.Rainfall)
	assert.Equal(t, 412.5, *f.predictor.lastVec.Rainfall)
}

func TestGetCropRecommendations_FarmNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.advisor.GetCropRecommendations(context.Background(), "nope")

	require.ErrorIs(t, err, domain.ErrFarmNotFound)
	assert.Zero(t, f.predictor.calls, "no prediction without a farm")
	assert.Empty(t, f.history.entries, "no audit entry without a prediction attempt")
}

func TestGetCropRecommendations_ExactlyOneHistoryEntryPerAttempt(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture()

		_, err := f.advisor.GetCropRecommendations(context.Background(), "farm-1")
		require.NoError(t, err)

		require.Len(t, f.history.entries, 1)
		entry := f.history.entries[0]
		assert.Equal(t, "farm-1", entry.FarmID)
		assert.True(t, entry.Success)
		assert.Equal(t, f.predictor.lastVec, entry.Input)
		assert.JSONEq(t, `[{"crop":"Rice","confidence":0.85}]`, string(entry.Response))
	})

	t.Run("failure", func(t *testing.T) {
		f := newFixture()
		f.predictor.err = errors.New("dial tcp: connection refused")
		f.predictor.response = nil

		_, err := f.advisor.GetCropRecommendations(context.Background(), "farm-1")
		require.NoError(t, err)

		require.Len(t, f.history.entries, 1)
		entry := f.history.entries[0]
		assert.False(t, entry.Success)

		var desc map[string]string
		require.NoError(t, json.Unmarshal(entry.Response, &desc))
		assert.Contains(t, desc["error"], "connection refused")
	})
}

func TestGetCropRecommendations_PredictorFailureMasksToFallback(t *testing.T) {
	f := newFixture()
	f.predictor.err = errors.New("service unavailable")
	f.predictor.response = nil

	recs, err := f.advisor.GetCropRecommendations(context.Background(), "farm-1")

	require.NoError(t, err, "predictor failure must not surface")
	require.Len(t, recs, 5)
	assert.Equal(t, "Wheat", recs[0].CropName)
	assert.Contains(t, recs[0].Rationale, "offline fallback advisory")
}

func TestGetCropRecommendations_UnrecognizedResponseMasksToFallback(t *testing.T) {
	f := newFixture()
	f.predictor.response = json.RawMessage(`{"status":"ok"}`)

	recs, err := f.advisor.GetCropRecommendations(context.Background(), "farm-1")

	require.NoError(t, err)
	require.Len(t, recs, 5)

	// The attempt itself succeeded; the audit trail records it as such.
	require.Len(t, f.history.entries, 1)
	assert.True(t, f.history.entries[0].Success)
}

func TestGetCropRecommendations_SeasonalDegradesToForecastPoint(t *testing.T) {
	f := newFixture()
	f.seasonal.err = errors.New("open-meteo API error: status 503")

	recs, err := f.advisor.GetCropRecommendations(context.Background(), "farm-1")

	require.NoError(t, err)
	assert.NotEmpty(t, recs)

	// Climate features come from the first instant-forecast point, verbatim.
	require.NotNil(t, f.predictor.lastVec.Temperature)
	assert.Equal(t, 29.0, *f.predictor.lastVec.Temperature)
	require.NotNil(t, f.predictor.lastVec.Humidity)
	assert.Equal(t, 68.0, *f.predictor.lastVec.Humidity)
	require.NotNil(t, f.predictor.lastVec.Rainfall)
	assert.Equal(t, 20.0, *f.predictor.lastVec.Rainfall)
	assert.Equal(t, 1, f.forecast.calls)
}

func TestGetCropRecommendations_DoubleDegradationUsesSyntheticForecast(t *testing.T) {
	f := newFixture()
	f.seasonal.err = errors.New("seasonal down")
	f.forecast.err = errors.New("forecast down")
	f.forecast.points = nil

	recs, err := f.advisor.GetCropRecommendations(context.Background(), "farm-1")

	require.NoError(t, err)
	assert.NotEmpty(t, recs)

	// First synthetic point: 29°C, 68%, 20mm.
	require.NotNil(t, f.predictor.lastVec.Temperature)
	assert.Equal(t, 29.0, *f.predictor.lastVec.Temperature)
	require.NotNil(t, f.predictor.lastVec.Rainfall)
	assert.Equal(t, 20.0, *f.predictor.lastVec.Rainfall)
}

func TestGetCropRecommendations_HistoryWriteFailureDoesNotSurface(t *testing.T) {
	f := newFixture()
	f.history.err = errors.New("disk full")

	recs, err := f.advisor.GetCropRecommendations(context.Background(), "farm-1")

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Rice", recs[0].CropName)
}

func TestGetCropRecommendations_HistoryWriteSurvivesCancelledRequest(t *testing.T) {
	f := newFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.advisor.GetCropRecommendations(ctx, "farm-1")
	require.NoError(t, err)

	require.Len(t, f.history.ctxErrs, 1)
	assert.NoError(t, f.history.ctxErrs[0], "history write context must be detached from the request")
}

func TestGetCropRecommendations_PublishesPredictionEvent(t *testing.T) {
	f := newFixture()

	_, err := f.advisor.GetCropRecommendations(context.Background(), "farm-1")
	require.NoError(t, err)

	require.Len(t, f.events.published, 1)
	assert.Equal(t, "farm-1", f.events.published[0].FarmID)
}

func TestGetCropRecommendations_PublishFailureDoesNotSurface(t *testing.T) {
	f := newFixture()
	f.events.err = errors.New("broker unreachable")

	recs, err := f.advisor.GetCropRecommendations(context.Background(), "farm-1")

	require.NoError(t, err)
	assert.NotEmpty(t, recs)
}

func TestGetCropRecommendations_NilPublisher(t *testing.T) {
	f := newFixture()
	f.advisor = New(f.farms, []domain.SoilProvider{f.soil}, f.forecast, f.seasonal,
		f.predictor, f.history, nil, discardLogger(), observability.NewMetricsForTesting())

	recs, err := f.advisor.GetCropRecommendations(context.Background(), "farm-1")

	require.NoError(t, err)
	assert.NotEmpty(t, recs)
}

func TestGetForecast(t *testing.T) {
	t.Run("live forecast", func(t *testing.T) {
		f := newFixture()
		points := f.advisor.GetForecast(context.Background(), 28.61, 77.21)
		require.Len(t, points, 1)
		assert.False(t, points[0].Synthetic)
	})

	t.Run("invalid coordinates self-heal to synthetic", func(t *testing.T) {
		f := newFixture()
		points := f.advisor.GetForecast(context.Background(), 999, 77.21)
		require.Len(t, points, 7)
		assert.True(t, points[0].Synthetic)
		assert.Zero(t, f.forecast.calls)
	})

	t.Run("nil provider self-heals to synthetic", func(t *testing.T) {
		f := newFixture()
		f.advisor = New(f.farms, nil, nil, f.seasonal, f.predictor, f.history, nil,
			discardLogger(), observability.NewMetricsForTesting())

		points := f.advisor.GetForecast(context.Background(), 28.61, 77.21)
		require.Len(t, points, 7)
		assert.True(t, points[0].Synthetic)
	})
}

func TestGetSeasonalClimate(t *testing.T) {
	t.Run("surfaces upstream failure", func(t *testing.T) {
		f := newFixture()
		f.seasonal.err = errors.New("status 503")

		_, err := f.advisor.GetSeasonalClimate(context.Background(), 28.61, 77.21)
		require.Error(t, err)
	})

	t.Run("rejects invalid coordinates", func(t *testing.T) {
		f := newFixture()
		_, err := f.advisor.GetSeasonalClimate(context.Background(), -999, 0)
		require.Error(t, err)
		assert.Zero(t, f.seasonal.calls)
	})

	t.Run("for farm", func(t *testing.T) {
		f := newFixture()
		agg, err := f.advisor.GetSeasonalClimateForFarm(context.Background(), "farm-1")
		require.NoError(t, err)
		assert.Equal(t, 90, agg.SampleDayCount)
	})

	t.Run("for unknown farm", func(t *testing.T) {
		f := newFixture()
		_, err := f.advisor.GetSeasonalClimateForFarm(context.Background(), "nope")
		require.ErrorIs(t, err, domain.ErrFarmNotFound)
	})
}

func TestGetHistory(t *testing.T) {
	f := newFixture()
	for range 3 {
		_, err := f.advisor.GetCropRecommendations(context.Background(), "farm-1")
		require.NoError(t, err)
	}

	t.Run("returns entries", func(t *testing.T) {
		entries, err := f.advisor.GetHistory(context.Background(), "farm-1", 2)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("default limit", func(t *testing.T) {
		entries, err := f.advisor.GetHistory(context.Background(), "farm-1", 0)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("unknown farm", func(t *testing.T) {
		_, err := f.advisor.GetHistory(context.Background(), "nope", 10)
		require.ErrorIs(t, err, domain.ErrFarmNotFound)
	})
}
