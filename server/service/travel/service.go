// Package travel orchestrates one travel-assistant request: few-shot
// selection, the three comparison scenarios, token and cost accounting,
// history write-back, and response caching.
package travel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/tripsense/ai/cache"
	"github.com/hrygo/tripsense/ai/fewshot"
	"github.com/hrygo/tripsense/ai/history"
	"github.com/hrygo/tripsense/ai/llm"
	"github.com/hrygo/tripsense/ai/metrics"
	"github.com/hrygo/tripsense/ai/observability/logging"
	"github.com/hrygo/tripsense/ai/prompt"
	"github.com/hrygo/tripsense/ai/tokenizer"
)

// Gemini Flash pricing, USD per million tokens.
const (
	costPer1MInput  = 0.075
	costPer1MOutput = 0.30
)

// Scenario names used in responses and metrics labels.
const (
	ScenarioNoHistory    = "no_history"
	ScenarioAllHistory   = "all_history"
	ScenarioSmartHistory = "smart_history"
)

const (
	// allHistoryTripCap bounds the naive all-history scenario.
	allHistoryTripCap = 20

	defaultUserID      = "guest_user"
	defaultDestination = "Paris, France"
	defaultDates       = "Next month"
	defaultPreferences = "comfortable travel and sightseeing"

	responseCompletenessMinLen = 100
)

// highlightKeywords mark itinerary lines worth keeping as trip highlights.
var highlightKeywords = []string{"visit", "explore", "tour", "museum", "restaurant"}

// Request is one travel-assistant request. Empty fields are filled from the
// user's latest trip, or canned defaults when there is none.
type Request struct {
	Destination string `json:"destination"`
	TravelDates string `json:"travel_dates"`
	Preferences string `json:"preferences"`
	UserID      string `json:"user_id"`
}

// ScenarioMetrics carries the full output and accounting of one scenario.
type ScenarioMetrics struct {
	InputTokens       int     `json:"input_tokens"`
	OutputTokens      int     `json:"output_tokens"`
	TotalTokens       int     `json:"total_tokens"`
	CostEstimate      float64 `json:"cost_estimate"`
	FlightResponse    string  `json:"flight_response"`
	HotelResponse     string  `json:"hotel_response"`
	ItineraryResponse string  `json:"itinerary_response"`
	LatencyMs         int64   `json:"latency_ms"`
}

// TokenMetrics compares the three scenarios and reports the savings the
// smart strategy achieved over the naive all-history baseline.
type TokenMetrics struct {
	TotalInputTokens  int     `json:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens"`
	TotalTokens       int     `json:"total_tokens"`
	TotalCostEstimate float64 `json:"total_cost_estimate"`

	Scenario1NoHistory    ScenarioMetrics `json:"scenario_1_no_history"`
	Scenario2AllHistory   ScenarioMetrics `json:"scenario_2_all_history"`
	Scenario3SmartHistory ScenarioMetrics `json:"scenario_3_smart_history"`

	BaselineTokens    int     `json:"baseline_tokens"`
	TokensSaved       int     `json:"tokens_saved"`
	SavingsPercentage float64 `json:"savings_percentage"`
}

// QualityMetrics reports response completeness and the similarity evidence
// behind the smart selection.
type QualityMetrics struct {
	ResponseCompleteness float64                 `json:"response_completeness"`
	FewShotExamplesUsed  int                     `json:"few_shot_examples_used"`
	SimilarityScores     []float64               `json:"similarity_scores"`
	AvgSimilarity        float64                 `json:"avg_similarity"`
	CacheHit             bool                    `json:"cache_hit"`
	RankingInfo          map[string]fewshot.Meta `json:"ranking_info,omitempty"`
}

// Response is the travel-assistant reply. The smart scenario is the primary
// answer; the other two are carried in the metrics for comparison.
type Response struct {
	FlightRecommendations string `json:"flight_recommendations"`
	HotelRecommendations  string `json:"hotel_recommendations"`
	Itinerary             string `json:"itinerary"`

	TokenUsage int   `json:"token_usage"`
	LatencyMs  int64 `json:"latency_ms"`

	TokenMetrics   TokenMetrics   `json:"token_metrics"`
	QualityMetrics QualityMetrics `json:"quality_metrics"`

	SelectedFewShotExamples []string `json:"selected_few_shot_examples"`
}

// Config tunes the serving layer.
type Config struct {
	Model             string
	Provider          string
	ResponseCacheSize int
	ResponseCacheTTL  time.Duration
}

// Service wires the example-selection core to the LLM and the observability
// stack.
type Service struct {
	llm      llm.Service
	selector *fewshot.Selector
	history  *history.Store
	counter  *tokenizer.Counter
	tracker  *metrics.Tracker
	exporter *metrics.PrometheusExporter
	logger   *logging.Logger

	respCache *cache.LRUCache[string, *Response]
	model     string
	provider  string
}

// NewService creates the travel orchestration service.
func NewService(cfg Config, llmService llm.Service, selector *fewshot.Selector, hist *history.Store, tracker *metrics.Tracker, exporter *metrics.PrometheusExporter) *Service {
	cacheSize := cfg.ResponseCacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cacheTTL := cfg.ResponseCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &Service{
		llm:       llmService,
		selector:  selector,
		history:   hist,
		counter:   tokenizer.NewCounter(),
		tracker:   tracker,
		exporter:  exporter,
		logger:    logging.FromContext(context.Background()).WithField("component", "travel_service"),
		respCache: cache.NewLRUCache[string, *Response](cacheSize, cacheTTL),
		model:     cfg.Model,
		provider:  cfg.Provider,
	}
}

// GetUserHistory exposes the stored record for the history endpoint.
func (s *Service) GetUserHistory(ctx context.Context, userID string) history.UserRecord {
	return s.history.GetUserData(ctx, userID)
}

// RecordSatisfaction folds user feedback into the cached example stats and
// scales the 0-5 rating to the cache's 0-1 satisfaction range.
func (s *Service) RecordSatisfaction(ctx context.Context, destination, preferences string, rating int) {
	if rating < 0 || rating > 5 {
		return
	}
	s.selector.RecordSatisfaction(ctx, destination, preferences, float64(rating)/5.0)
}

// Process serves one travel-assistant request. It fills missing fields,
// probes the response cache, runs the three comparison scenarios
// concurrently, persists the trip back into history and tracks metrics.
// It fails only when LLM generation itself fails.
func (s *Service) Process(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	s.fillDefaults(ctx, &req)

	key := cacheKey(req)
	if cached, ok := s.respCache.Get(key); ok {
		s.exporter.RecordCacheHit("response_cache")
		s.logger.Info("response cache hit", "destination", req.Destination, "user_id", req.UserID)
		return cached, nil
	}
	s.exporter.RecordCacheMiss("response_cache")

	var s1, s2, s3 scenarioResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		s1, err = s.runScenario(gctx, req, ScenarioNoHistory)
		return err
	})
	g.Go(func() error {
		var err error
		s2, err = s.runScenario(gctx, req, ScenarioAllHistory)
		return err
	})
	g.Go(func() error {
		var err error
		s3, err = s.runScenario(gctx, req, ScenarioSmartHistory)
		return err
	})
	if err := g.Wait(); err != nil {
		latency := time.Since(start)
		s.exporter.RecordRequest(ScenarioSmartHistory, latency, false)
		s.tracker.TrackRequest(ctx, "travel-assistant", req.UserID, tokenizer.Usage{}, latency.Milliseconds(), false, err.Error())
		return nil, errors.Wrap(err, "scenario generation failed")
	}

	tokensSaved := s2.totalTokens() - s3.totalTokens()
	savingsPct := 0.0
	if s2.totalTokens() > 0 {
		savingsPct = round2(float64(tokensSaved) / float64(s2.totalTokens()) * 100)
	}

	response := &Response{
		FlightRecommendations: s3.flight.text,
		HotelRecommendations:  s3.hotel.text,
		Itinerary:             s3.itinerary.text,
		TokenUsage:            s3.totalTokens(),
		LatencyMs:             s3.latencyMs(),
		TokenMetrics: TokenMetrics{
			TotalInputTokens:      s3.inputTokens(),
			TotalOutputTokens:     s3.outputTokens(),
			TotalTokens:           s3.totalTokens(),
			TotalCostEstimate:     s3.cost(),
			Scenario1NoHistory:    s1.metrics(),
			Scenario2AllHistory:   s2.metrics(),
			Scenario3SmartHistory: s3.metrics(),
			BaselineTokens:        s2.totalTokens(),
			TokensSaved:           tokensSaved,
			SavingsPercentage:     savingsPct,
		},
		QualityMetrics:          s.qualityMetrics(s3),
		SelectedFewShotExamples: s3.exampleTexts(),
	}

	s.writeBackHistory(ctx, req, response)
	s.trackSuccess(ctx, req, s3, tokensSaved)
	s.respCache.SetWithDefaultTTL(key, response)

	s.logger.Info("request served",
		"destination", req.Destination,
		"user_id", req.UserID,
		"tokens", response.TokenUsage,
		"tokens_saved", tokensSaved,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return response, nil
}

// fillDefaults resolves empty request fields from the user's latest trip,
// falling back to canned defaults for brand-new users.
func (s *Service) fillDefaults(ctx context.Context, req *Request) {
	if req.UserID == "" {
		req.UserID = defaultUserID
	}
	if req.Destination != "" && req.TravelDates != "" && req.Preferences != "" {
		return
	}

	if last, ok := s.history.LatestTrip(ctx, req.UserID); ok {
		if req.Destination == "" {
			req.Destination = last.Destination
		}
		if req.TravelDates == "" {
			req.TravelDates = last.TravelDates
		}
		if req.Preferences == "" {
			req.Preferences = last.Preferences
		}
	}
	if req.Destination == "" {
		req.Destination = defaultDestination
	}
	if req.TravelDates == "" {
		req.TravelDates = defaultDates
	}
	if req.Preferences == "" {
		req.Preferences = defaultPreferences
	}
}

type componentResult struct {
	text         string
	examples     string
	scores       []float64
	meta         fewshot.Meta
	inputTokens  int
	outputTokens int
	latencyMs    int64
}

type scenarioResult struct {
	name      string
	flight    componentResult
	hotel     componentResult
	itinerary componentResult
}

func (r scenarioResult) inputTokens() int {
	return r.flight.inputTokens + r.hotel.inputTokens + r.itinerary.inputTokens
}

func (r scenarioResult) outputTokens() int {
	return r.flight.outputTokens + r.hotel.outputTokens + r.itinerary.outputTokens
}

func (r scenarioResult) totalTokens() int {
	return r.inputTokens() + r.outputTokens()
}

func (r scenarioResult) latencyMs() int64 {
	return r.flight.latencyMs + r.hotel.latencyMs + r.itinerary.latencyMs
}

func (r scenarioResult) cost() float64 {
	return float64(r.inputTokens())/1e6*costPer1MInput + float64(r.outputTokens())/1e6*costPer1MOutput
}

func (r scenarioResult) metrics() ScenarioMetrics {
	return ScenarioMetrics{
		InputTokens:       r.inputTokens(),
		OutputTokens:      r.outputTokens(),
		TotalTokens:       r.totalTokens(),
		CostEstimate:      round6(r.cost()),
		FlightResponse:    r.flight.text,
		HotelResponse:     r.hotel.text,
		ItineraryResponse: r.itinerary.text,
		LatencyMs:         r.latencyMs(),
	}
}

func (r scenarioResult) exampleTexts() []string {
	var out []string
	for _, c := range []componentResult{r.flight, r.hotel, r.itinerary} {
		if strings.TrimSpace(c.examples) != "" {
			out = append(out, c.examples)
		}
	}
	if len(out) == 0 {
		out = append(out, "No previous travel history available")
	}
	return out
}

// runScenario generates all three components concurrently with the few-shot
// strategy the scenario dictates.
func (s *Service) runScenario(ctx context.Context, req Request, scenario string) (scenarioResult, error) {
	result := scenarioResult{name: scenario}

	var flightExamples, hotelExamples, itineraryExamples string
	switch scenario {
	case ScenarioNoHistory:
		// Base prompts only.
	case ScenarioAllHistory:
		flightExamples, hotelExamples, itineraryExamples = s.naiveExamples(ctx, req.UserID)
	case ScenarioSmartHistory:
		var scores []float64
		flightExamples, scores, result.flight.meta = s.selector.ExamplesForFlight(ctx, req.Destination, req.Preferences, req.UserID)
		result.flight.scores = scores
		hotelExamples, scores, result.hotel.meta = s.selector.ExamplesForHotel(ctx, req.Destination, req.Preferences, req.UserID)
		result.hotel.scores = scores
		itineraryExamples, scores, result.itinerary.meta = s.selector.ExamplesForItinerary(ctx, req.Destination, req.Preferences, req.UserID)
		result.itinerary.scores = scores
	default:
		return result, errors.Errorf("unknown scenario %q", scenario)
	}
	result.flight.examples = flightExamples
	result.hotel.examples = hotelExamples
	result.itinerary.examples = itineraryExamples

	params := prompt.Params{
		Destination: req.Destination,
		TravelDates: req.TravelDates,
		Preferences: req.Preferences,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p := params
		p.FewShotExamples = flightExamples
		return s.callComponent(gctx, prompt.FlightSearch(p), "flight", &result.flight)
	})
	g.Go(func() error {
		p := params
		p.FewShotExamples = hotelExamples
		return s.callComponent(gctx, prompt.HotelRecommendations(p), "hotel", &result.hotel)
	})
	g.Go(func() error {
		p := params
		p.FewShotExamples = itineraryExamples
		return s.callComponent(gctx, prompt.ItineraryPlanning(p), "itinerary", &result.itinerary)
	})
	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

// callComponent invokes the LLM for one prompt and accounts for tokens and
// latency via the local tokenizer, so counts stay comparable across
// providers that do not report usage.
func (s *Service) callComponent(ctx context.Context, promptText, component string, out *componentResult) error {
	out.inputTokens = s.counter.CountTokens(promptText)

	start := time.Now()
	text, _, err := s.llm.Chat(ctx, []llm.Message{llm.UserMessage(promptText)})
	latency := time.Since(start)
	if err != nil {
		return errors.Wrapf(err, "%s generation failed", component)
	}

	out.text = text
	out.latencyMs = latency.Milliseconds()
	out.outputTokens = s.counter.CountTokens(text)

	s.exporter.RecordComponentLatency(component, latency)
	s.exporter.RecordLLMLatency(s.model, s.provider, latency)
	return nil
}

// naiveExamples formats up to 20 raw trips per component, the way a system
// without smart selection would.
func (s *Service) naiveExamples(ctx context.Context, userID string) (flight, hotel, itinerary string) {
	trips := s.history.GetRecentTrips(ctx, userID, allHistoryTripCap)
	if len(trips) == 0 {
		return "", "", ""
	}

	var fb, hb, ib strings.Builder
	for i, trip := range trips {
		if i > 0 {
			fb.WriteString("\n\n")
			hb.WriteString("\n\n")
			ib.WriteString("\n\n")
		}
		fmt.Fprintf(&fb, "Example %d:\nDestination: %s\nFlight: %s", i+1, trip.Destination, orNA(trip.FlightSummary))
		fmt.Fprintf(&hb, "Example %d:\nDestination: %s\nHotel: %s", i+1, trip.Destination, orNA(trip.HotelSummary))
		fmt.Fprintf(&ib, "Example %d:\nDestination: %s\nHighlights: %s", i+1, trip.Destination, strings.Join(trip.ItineraryHighlights, ", "))
	}
	return fb.String(), hb.String(), ib.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func (s *Service) qualityMetrics(smart scenarioResult) QualityMetrics {
	completeness := 0.0
	if len(smart.flight.text) > responseCompletenessMinLen {
		completeness += 33.33
	}
	if len(smart.hotel.text) > responseCompletenessMinLen {
		completeness += 33.33
	}
	if len(smart.itinerary.text) > responseCompletenessMinLen {
		completeness += 33.34
	}

	scores := smart.flight.scores
	avg := 0.0
	if len(scores) > 0 {
		for _, v := range scores {
			avg += v
		}
		avg = round2(avg / float64(len(scores)))
	}

	cacheHit := smart.flight.meta.CacheHit || smart.hotel.meta.CacheHit || smart.itinerary.meta.CacheHit
	ranking := map[string]fewshot.Meta{
		"flight":    smart.flight.meta,
		"hotel":     smart.hotel.meta,
		"itinerary": smart.itinerary.meta,
	}

	return QualityMetrics{
		ResponseCompleteness: round2(completeness),
		FewShotExamplesUsed:  len(scores),
		SimilarityScores:     scores,
		AvgSimilarity:        avg,
		CacheHit:             cacheHit,
		RankingInfo:          ranking,
	}
}

// writeBackHistory records the served trip so future requests can learn
// from it. Failures degrade personalization only; the response still stands.
func (s *Service) writeBackHistory(ctx context.Context, req Request, resp *Response) {
	err := s.history.AddTrip(ctx, req.UserID, history.TripParams{
		Destination:         req.Destination,
		TravelDates:         req.TravelDates,
		Preferences:         req.Preferences,
		FlightSummary:       resp.FlightRecommendations,
		HotelSummary:        resp.HotelRecommendations,
		ItineraryHighlights: extractHighlights(resp.Itinerary),
		SatisfactionRating:  0,
		TokenUsage:          resp.TokenUsage,
		LatencyMs:           int(resp.LatencyMs),
	})
	if err != nil {
		s.logger.Warn("failed to record trip in history", "user_id", req.UserID, "error", err.Error())
	}
}

// extractHighlights keeps lines from the first ten that mention an activity
// keyword, up to five.
func extractHighlights(itinerary string) []string {
	lines := strings.Split(itinerary, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}

	var highlights []string
	for _, line := range lines {
		if len(highlights) >= 5 {
			break
		}
		lower := strings.ToLower(line)
		for _, kw := range highlightKeywords {
			if strings.Contains(lower, kw) {
				highlights = append(highlights, strings.TrimSpace(line))
				break
			}
		}
	}
	return highlights
}

func (s *Service) trackSuccess(ctx context.Context, req Request, smart scenarioResult, tokensSaved int) {
	latency := time.Duration(smart.latencyMs()) * time.Millisecond
	s.exporter.RecordRequest(ScenarioSmartHistory, latency, true)
	s.exporter.RecordLLMTokens(s.model, "prompt", smart.inputTokens())
	s.exporter.RecordLLMTokens(s.model, "completion", smart.outputTokens())
	s.exporter.RecordTokensSaved(tokensSaved)
	s.exporter.RecordCost(s.model, smart.cost())

	s.tracker.TrackRequest(ctx, "travel-assistant", req.UserID, tokenizer.Usage{
		PromptTokens:     smart.inputTokens(),
		CompletionTokens: smart.outputTokens(),
		TotalTokens:      smart.totalTokens(),
	}, smart.latencyMs(), true, "")
}

// cacheKey derives a deterministic response-cache key from the resolved
// request fields.
func cacheKey(req Request) string {
	// Struct field order makes the encoding deterministic.
	data, _ := json.Marshal(req)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
