// Package server assembles the HTTP server: storage, LLM, selection core,
// metrics and the REST routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/tripsense/ai/examplecache"
	"github.com/hrygo/tripsense/ai/fewshot"
	"github.com/hrygo/tripsense/ai/history"
	"github.com/hrygo/tripsense/ai/llm"
	"github.com/hrygo/tripsense/ai/metrics"
	"github.com/hrygo/tripsense/internal/profile"
	"github.com/hrygo/tripsense/server/router/apiv1"
	"github.com/hrygo/tripsense/server/service/travel"
	"github.com/hrygo/tripsense/store"
)

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	driver     store.Driver
	tracker    *metrics.Tracker
}

func NewServer(ctx context.Context, instanceProfile *profile.Profile, driver store.Driver) (*Server, error) {
	if !instanceProfile.IsLLMEnabled() {
		return nil, errors.New("LLM is not configured, set TRIPSENSE_LLM_API_KEY")
	}

	llmService, err := llm.NewService(&llm.Config{
		Provider:    instanceProfile.LLMProvider,
		Model:       instanceProfile.LLMModel,
		APIKey:      instanceProfile.LLMAPIKey,
		BaseURL:     instanceProfile.LLMBaseURL,
		MaxTokens:   instanceProfile.LLMMaxTokens,
		Temperature: float32(instanceProfile.LLMTemperature),
		Timeout:     instanceProfile.LLMTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create LLM service")
	}
	// Warmup is best-effort; a cold connection only slows the first request.
	go func() {
		warmupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		llmService.Warmup(warmupCtx)
	}()

	historyStore := history.New(driver)
	exampleCache := examplecache.New(driver, instanceProfile.ExampleCacheSize)
	selector := fewshot.NewSelector(historyStore, exampleCache)
	tracker := metrics.NewTracker(driver)
	exporter := metrics.NewPrometheusExporter(metrics.DefaultExporterConfig())

	travelService := travel.NewService(travel.Config{
		Model:    instanceProfile.LLMModel,
		Provider: instanceProfile.LLMProvider,
	}, llmService, selector, historyStore, tracker, exporter)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			)
			return nil
		},
	}))

	apiService := apiv1.NewAPIV1Service(instanceProfile, travelService, tracker, exampleCache)
	apiService.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(exporter.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": instanceProfile.Version,
		})
	})

	return &Server{
		Profile:    instanceProfile,
		echoServer: e,
		driver:     driver,
		tracker:    tracker,
	}, nil
}

// Start launches the HTTP listener. It returns immediately; listener errors
// other than a clean shutdown are logged from the serving goroutine.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

// Shutdown drains in-flight requests, flushes metrics and closes storage.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	s.tracker.Flush(ctx)
	if err := s.driver.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}

	slog.Info("tripsense stopped properly")
}
