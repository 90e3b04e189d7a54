// Package apiv1 exposes the REST surface of the travel assistant.
package apiv1

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/hrygo/tripsense/ai/examplecache"
	"github.com/hrygo/tripsense/ai/history"
	"github.com/hrygo/tripsense/ai/metrics"
	"github.com/hrygo/tripsense/internal/profile"
	"github.com/hrygo/tripsense/server/service/travel"
)

// travelAssistantRateLimit bounds requests per second per client IP on the
// LLM-backed endpoint.
const travelAssistantRateLimit = 5

// TravelProcessor is the serving-layer surface the router needs.
type TravelProcessor interface {
	Process(ctx context.Context, req travel.Request) (*travel.Response, error)
	GetUserHistory(ctx context.Context, userID string) history.UserRecord
	RecordSatisfaction(ctx context.Context, destination, preferences string, rating int)
}

type APIV1Service struct {
	Profile      *profile.Profile
	Travel       TravelProcessor
	Tracker      *metrics.Tracker
	ExampleCache *examplecache.Cache
}

func NewAPIV1Service(profile *profile.Profile, travelService TravelProcessor, tracker *metrics.Tracker, exampleCache *examplecache.Cache) *APIV1Service {
	return &APIV1Service{
		Profile:      profile,
		Travel:       travelService,
		Tracker:      tracker,
		ExampleCache: exampleCache,
	}
}

// RegisterRoutes mounts the REST endpoints on the given Echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	group := e.Group("/api/v1")
	group.Use(middleware.CORS())

	rateLimiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStore(rate.Limit(travelAssistantRateLimit)),
	})
	group.POST("/travel-assistant", s.travelAssistant, rateLimiter)
	group.POST("/feedback", s.feedback)
	group.GET("/history/:user", s.userHistory)

	group.GET("/dashboard/summary", s.dashboardSummary)
	group.GET("/dashboard/metrics", s.dashboardMetrics)
	group.GET("/dashboard/user/:user", s.dashboardUser)
	group.GET("/dashboard/cache", s.dashboardCache)
}

func (s *APIV1Service) travelAssistant(c echo.Context) error {
	var req travel.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	resp, err := s.Travel.Process(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "error processing travel request: "+err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

type feedbackRequest struct {
	Destination string `json:"destination"`
	Preferences string `json:"preferences"`
	Rating      int    `json:"rating"`
}

func (s *APIV1Service) feedback(c echo.Context) error {
	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Destination == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "destination is required")
	}
	if req.Rating < 0 || req.Rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 0 and 5")
	}

	s.Travel.RecordSatisfaction(c.Request().Context(), req.Destination, req.Preferences, req.Rating)
	return c.JSON(http.StatusOK, map[string]string{"message": "feedback recorded"})
}

func (s *APIV1Service) userHistory(c echo.Context) error {
	userID := c.Param("user")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}
	return c.JSON(http.StatusOK, s.Travel.GetUserHistory(c.Request().Context(), userID))
}

func (s *APIV1Service) dashboardSummary(c echo.Context) error {
	hours := 24
	if raw := c.QueryParam("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "hours must be a positive integer")
		}
		hours = parsed
	}
	return c.JSON(http.StatusOK, s.Tracker.GetSummary(hours))
}

func (s *APIV1Service) dashboardMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Tracker.GetDashboard())
}

func (s *APIV1Service) dashboardUser(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Tracker.GetUserStats(c.Param("user")))
}

func (s *APIV1Service) dashboardCache(c echo.Context) error {
	return c.JSON(http.StatusOK, s.ExampleCache.GetStats())
}
