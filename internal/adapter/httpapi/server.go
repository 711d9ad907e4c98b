package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
)

// AdvisoryService is the consumer-side view of the recommendation
// orchestrator used by the HTTP layer.
type AdvisoryService interface {
	GetCropRecommendations(ctx context.Context, farmID string) ([]domain.CanonicalRecommendation, error)
	GetSeasonalClimate(ctx context.Context, lat, lon float64) (domain.SeasonalAggregate, error)
	GetSeasonalClimateForFarm(ctx context.Context, farmID string) (domain.SeasonalAggregate, error)
	GetForecast(ctx context.Context, lat, lon float64) []domain.ForecastPoint
	GetForecastForFarm(ctx context.Context, farmID string) ([]domain.ForecastPoint, error)
	GetHistory(ctx context.Context, farmID string, limit int) ([]domain.PredictionHistoryEntry, error)
}

// FarmRegistry manages farm plot records.
type FarmRegistry interface {
	Create(ctx context.Context, farm *domain.FarmPlot) error
	GetByID(ctx context.Context, id string) (domain.FarmPlot, error)
	ListByUser(ctx context.Context, userID string) ([]domain.FarmPlot, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the advisory API plus health, readiness, and metrics
// endpoints.
type Server struct {
	echo    *echo.Echo
	addr    string
	advisor AdvisoryService
	farms   FarmRegistry
	ready   ReadinessChecker
	logger  *slog.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(addr string, advisor AdvisoryService, farms FarmRegistry, ready ReadinessChecker, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		addr:    addr,
		advisor: advisor,
		farms:   farms,
		ready:   ready,
		logger:  logger,
	}

	api := e.Group("/api")
	api.POST("/recommendations", s.handleRecommend)
	api.GET("/recommendations/history", s.handleHistory)
	api.GET("/recommendations/seasonal", s.handleSeasonal)
	api.GET("/weather", s.handleWeather)
	api.POST("/farms", s.handleCreateFarm)
	api.GET("/farms", s.handleListFarms)
	api.GET("/farms/:id", s.handleGetFarm)

	e.GET("/healthz", s.handleHealth)
	e.GET("/readyz", s.handleReady)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.addr)
	return s.echo.Start(s.addr)
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

func respondError(c echo.Context, status int, msg string) error {
	return c.JSON(status, envelope{Success: false, Error: msg})
}

// failFor maps service errors to HTTP responses: unknown farm is 404,
// anything else is a 502 from an upstream we could not heal around.
func failFor(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrFarmNotFound) {
		return respondError(c, http.StatusNotFound, domain.ErrFarmNotFound.Error())
	}
	return respondError(c, http.StatusBadGateway, err.Error())
}

func (s *Server) handleRecommend(c echo.Context) error {
	var req struct {
		FarmID string `json:"farmId"`
	}
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request body")
	}
	if req.FarmID == "" {
		return respondError(c, http.StatusBadRequest, "farmId is required")
	}

	recs, err := s.advisor.GetCropRecommendations(c.Request().Context(), req.FarmID)
	if err != nil {
		return failFor(c, err)
	}
	return respond(c, http.StatusOK, recs)
}

func (s *Server) handleHistory(c echo.Context) error {
	farmID := c.QueryParam("farmId")
	if farmID == "" {
		return respondError(c, http.StatusBadRequest, "farmId is required")
	}
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return respondError(c, http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	entries, err := s.advisor.GetHistory(c.Request().Context(), farmID, limit)
	if err != nil {
		return failFor(c, err)
	}
	return respond(c, http.StatusOK, entries)
}

func (s *Server) handleSeasonal(c echo.Context) error {
	ctx := c.Request().Context()

	if farmID := c.QueryParam("farmId"); farmID != "" {
		agg, err := s.advisor.GetSeasonalClimateForFarm(ctx, farmID)
		if err != nil {
			return failFor(c, err)
		}
		return respond(c, http.StatusOK, agg)
	}

	lat, lon, err := coordParams(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}
	agg, err := s.advisor.GetSeasonalClimate(ctx, lat, lon)
	if err != nil {
		return failFor(c, err)
	}
	return respond(c, http.StatusOK, agg)
}

func (s *Server) handleWeather(c echo.Context) error {
	ctx := c.Request().Context()

	if farmID := c.QueryParam("farmId"); farmID != "" {
		points, err := s.advisor.GetForecastForFarm(ctx, farmID)
		if err != nil {
			return failFor(c, err)
		}
		return respond(c, http.StatusOK, points)
	}

	lat, lon, err := coordParams(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}
	return respond(c, http.StatusOK, s.advisor.GetForecast(ctx, lat, lon))
}

func (s *Server) handleCreateFarm(c echo.Context) error {
	var farm domain.FarmPlot
	if err := c.Bind(&farm); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request body")
	}

	if err := s.farms.Create(c.Request().Context(), &farm); err != nil {
		if vErr := farm.Validate(); vErr != nil {
			return respondError(c, http.StatusBadRequest, vErr.Error())
		}
		return respondError(c, http.StatusInternalServerError, "could not create farm")
	}
	return respond(c, http.StatusCreated, farm)
}

func (s *Server) handleListFarms(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return respondError(c, http.StatusBadRequest, "userId is required")
	}
	farms, err := s.farms.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, "could not list farms")
	}
	return respond(c, http.StatusOK, farms)
}

func (s *Server) handleGetFarm(c echo.Context) error {
	farm, err := s.farms.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return failFor(c, err)
	}
	return respond(c, http.StatusOK, farm)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.ready.CheckReadiness(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// coordParams parses and validates lat/lon query parameters.
func coordParams(c echo.Context) (float64, float64, error) {
	latStr, lonStr := c.QueryParam("lat"), c.QueryParam("lon")
	if latStr == "" || lonStr == "" {
		return 0, 0, errors.New("farmId or lat/lon is required")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, errors.New("invalid lat")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, errors.New("invalid lon")
	}
	if err := (domain.Geo{Lat: lat, Lon: lon}).Validate(); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}
