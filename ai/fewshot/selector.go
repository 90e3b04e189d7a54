package fewshot

import (
	"context"
	"sort"

	"github.com/hrygo/tripsense/ai/examplecache"
	"github.com/hrygo/tripsense/ai/history"
	"github.com/hrygo/tripsense/ai/observability/logging"
)

// Strategy is the few-shot detail level chosen for a request.
type Strategy string

const (
	// StrategyFull injects the single best-matching trip with full detail.
	StrategyFull Strategy = "full"
	// StrategyCondensed injects several trips in condensed form.
	StrategyCondensed Strategy = "condensed"
	// StrategySummary injects only the aggregate travel profile.
	StrategySummary Strategy = "summary"
	// StrategyNone injects nothing; the user has no history at all.
	StrategyNone Strategy = "none"
)

// Similarity thresholds driving strategy selection.
const (
	HighSimilarityThreshold   = 0.70
	MediumSimilarityThreshold = 0.40
)

// Estimated prompt token costs per strategy.
const (
	fullStrategyTokens     = 800
	condensedTokensPerTrip = 200
	summaryStrategyTokens  = 150
	DefaultMaxExamples     = 3
)

// Selection is the outcome of one example-selection pass.
type Selection struct {
	Strategy        Strategy                  `json:"strategy"`
	Examples        []examplecache.Example    `json:"examples,omitempty"`
	Summary         history.HistorySummary    `json:"summary,omitzero"`
	EstimatedTokens int                       `json:"estimated_tokens"`
	FromCache       bool                      `json:"from_cache"`
	Ranking         *examplecache.RankingInfo `json:"ranking_info,omitempty"`
}

// Meta is the telemetry attached to a formatted per-component selection.
type Meta struct {
	CacheHit bool                      `json:"cache_hit"`
	Ranking  *examplecache.RankingInfo `json:"ranking_info,omitempty"`
}

// Selector holds no persistent state of its own; it orchestrates the cache
// and the history store.
type Selector struct {
	history     *history.Store
	cache       *examplecache.Cache
	logger      *logging.Logger
	maxExamples int
}

// NewSelector wires a selector over the given history store and cache.
func NewSelector(hist *history.Store, cache *examplecache.Cache) *Selector {
	return &Selector{
		history:     hist,
		cache:       cache,
		logger:      logging.FromContext(context.Background()).WithField("component", "fewshot"),
		maxExamples: DefaultMaxExamples,
	}
}

// Select picks the few-shot strategy for the request. It never fails: absent
// history and cache state map to StrategyNone, not an error.
//
// Cache hits return the re-ranked top examples as a condensed selection.
// Otherwise every recent trip is scored against the request and the best
// score decides: at or above the high threshold a single full example, at or
// above the medium threshold up to maxExamples condensed examples (both
// written back into the cache), below it the summary profile (not cached).
func (s *Selector) Select(ctx context.Context, destination, preferences, userID string) Selection {
	if ranked, info := s.cache.GetRanked(ctx, destination, preferences, s.maxExamples); len(ranked) > 0 {
		return Selection{
			Strategy:        StrategyCondensed,
			Examples:        ranked,
			EstimatedTokens: len(ranked) * condensedTokensPerTrip,
			FromCache:       true,
			Ranking:         &info,
		}
	}

	recentTrips := s.history.GetRecentTrips(ctx, userID, 0)
	summary := s.history.GetSummary(ctx, userID)

	if len(recentTrips) == 0 && summary.TotalTrips == 0 {
		return Selection{Strategy: StrategyNone, EstimatedTokens: 0}
	}

	scored := make([]examplecache.Example, 0, len(recentTrips))
	for _, trip := range recentTrips {
		scored = append(scored, examplecache.Example{
			Trip:            trip,
			SimilarityScore: Similarity(trip, destination, preferences),
		})
	}
	// Stable: the original window order breaks score ties.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].SimilarityScore > scored[j].SimilarityScore
	})

	bestScore := 0.0
	if len(scored) > 0 {
		bestScore = scored[0].SimilarityScore
	}

	switch {
	case bestScore >= HighSimilarityThreshold:
		top := scored[:1]
		s.cache.Put(ctx, destination, preferences, top, examplecache.DefaultSatisfaction)
		return Selection{
			Strategy:        StrategyFull,
			Examples:        top,
			EstimatedTokens: fullStrategyTokens,
		}

	case bestScore >= MediumSimilarityThreshold:
		n := s.maxExamples
		if n > len(scored) {
			n = len(scored)
		}
		top := scored[:n]
		s.cache.Put(ctx, destination, preferences, top, examplecache.DefaultSatisfaction)
		return Selection{
			Strategy:        StrategyCondensed,
			Examples:        top,
			EstimatedTokens: n * condensedTokensPerTrip,
		}

	default:
		return Selection{
			Strategy:        StrategySummary,
			Summary:         summary,
			EstimatedTokens: summaryStrategyTokens,
		}
	}
}

// examplesFor runs selection and formatting for one prompt component and
// extracts the similarity scores actually used: empty for "none", a single
// zero for "summary", the real computed scores otherwise.
func (s *Selector) examplesFor(ctx context.Context, promptType PromptType, destination, preferences, userID string) (string, []float64, Meta) {
	selection := s.Select(ctx, destination, preferences, userID)
	text := FormatForPrompt(selection, promptType)

	var scores []float64
	switch selection.Strategy {
	case StrategyFull, StrategyCondensed:
		scores = make([]float64, len(selection.Examples))
		for i, ex := range selection.Examples {
			scores[i] = ex.SimilarityScore
		}
	case StrategySummary:
		scores = []float64{0.0}
	case StrategyNone:
		scores = []float64{}
	}

	return text, scores, Meta{CacheHit: selection.FromCache, Ranking: selection.Ranking}
}

// RecordSatisfaction folds user feedback into the cached stats for the
// request's fingerprint. Unknown fingerprints are ignored.
func (s *Selector) RecordSatisfaction(ctx context.Context, destination, preferences string, satisfaction float64) {
	s.cache.UpdateSatisfaction(ctx, destination, preferences, satisfaction)
}

// ExamplesForFlight returns prompt-ready few-shot text for flight search,
// with the similarity scores used and cache/ranking telemetry.
func (s *Selector) ExamplesForFlight(ctx context.Context, destination, preferences, userID string) (string, []float64, Meta) {
	return s.examplesFor(ctx, PromptFlight, destination, preferences, userID)
}

// ExamplesForHotel is ExamplesForFlight for hotel recommendations.
func (s *Selector) ExamplesForHotel(ctx context.Context, destination, preferences, userID string) (string, []float64, Meta) {
	return s.examplesFor(ctx, PromptHotel, destination, preferences, userID)
}

// ExamplesForItinerary is ExamplesForFlight for itinerary planning.
func (s *Selector) ExamplesForItinerary(ctx context.Context, destination, preferences, userID string) (string, []float64, Meta) {
	return s.examplesFor(ctx, PromptItinerary, destination, preferences, userID)
}
