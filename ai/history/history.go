// Package history implements the dual-strategy user travel history store:
// a bounded recent-trip window with full detail, plus a compressed summary
// covering every trip the user ever recorded.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hrygo/tripsense/ai/observability/logging"
	"github.com/hrygo/tripsense/internal/strutil"
	"github.com/hrygo/tripsense/store"
)

const (
	// MaxRecentTrips bounds the full-detail window per user.
	MaxRecentTrips = 10

	maxFavoriteDestinations = 10
	maxPreferencePatterns   = 20

	maxSummaryLen      = 200
	maxHighlights      = 5
	maxHighlightLen    = 100
	defaultUserDisplay = "Guest User"
)

// document is the persisted shape of the whole history store.
type document struct {
	Users map[string]*UserRecord `json:"users"`
}

// Store manages per-user travel history backed by a single durable document.
// All mutations run a load-mutate-save cycle under one mutex; two concurrent
// AddTrip calls for the same user can therefore never lose a write.
type Store struct {
	driver store.Driver
	logger *logging.Logger

	mu sync.Mutex

	// nowFunc is swappable in tests.
	nowFunc func() time.Time
}

// New creates a history store on top of the given driver.
func New(driver store.Driver) *Store {
	return &Store{
		driver:  driver,
		logger:  logging.FromContext(context.Background()).WithField("component", "history"),
		nowFunc: time.Now,
	}
}

// load reads the persisted document. A missing, corrupt or unreadable
// document degrades to an empty store; it is logged, never fatal.
func (s *Store) load(ctx context.Context) *document {
	doc := &document{Users: map[string]*UserRecord{}}

	data, err := s.driver.LoadDocument(ctx, store.DocUserHistory)
	if err != nil {
		if err != store.ErrNotFound {
			s.logger.Warn("failed to load history, starting empty", "error", err.Error())
		}
		return doc
	}
	if err := json.Unmarshal(data, doc); err != nil {
		s.logger.Warn("corrupt history document, starting empty", "error", err.Error())
		return &document{Users: map[string]*UserRecord{}}
	}
	if doc.Users == nil {
		doc.Users = map[string]*UserRecord{}
	}
	return doc
}

func (s *Store) save(ctx context.Context, doc *document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.driver.SaveDocument(ctx, store.DocUserHistory, data)
}

// defaultRecord returns the canonical empty record for an unknown user.
func (s *Store) defaultRecord() UserRecord {
	return UserRecord{
		Name:        defaultUserDisplay,
		RecentTrips: []Trip{},
		HistorySummary: HistorySummary{
			FavoriteDestinations: []string{},
			PreferencePatterns:   []string{},
			LastUpdated:          s.nowFunc(),
		},
	}
}

// GetUserData returns the stored record for userID, or the canonical default
// record if the user is unknown. Never fails for an unknown id.
func (s *Store) GetUserData(ctx context.Context, userID string) UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)
	if record, ok := doc.Users[userID]; ok {
		return *record
	}
	return s.defaultRecord()
}

// GetRecentTrips returns up to limit most-recent trips in insertion order
// (oldest-appended-first within the returned slice). limit <= 0 returns the
// full window.
func (s *Store) GetRecentTrips(ctx context.Context, userID string, limit int) []Trip {
	record := s.GetUserData(ctx, userID)
	trips := record.RecentTrips
	if limit > 0 && len(trips) > limit {
		return trips[len(trips)-limit:]
	}
	return trips
}

// LatestTrip returns the most recently added trip, or false when the user has
// no recorded trips.
func (s *Store) LatestTrip(ctx context.Context, userID string) (Trip, bool) {
	trips := s.GetRecentTrips(ctx, userID, 1)
	if len(trips) == 0 {
		return Trip{}, false
	}
	return trips[0], true
}

// GetSummary returns the compressed summary for userID.
func (s *Store) GetSummary(ctx context.Context, userID string) HistorySummary {
	return s.GetUserData(ctx, userID).HistorySummary
}

// AddTrip appends a new trip to the user's recent window, evicting and
// archiving the oldest trip when the window exceeds its bound, then
// recomputes the summary and persists the whole store.
func (s *Store) AddTrip(ctx context.Context, userID string, params TripParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)

	user, ok := doc.Users[userID]
	if !ok {
		record := s.defaultRecord()
		record.Name = fmt.Sprintf("User %s", userID)
		user = &record
		doc.Users[userID] = user
	}

	user.HistorySummary.TotalTrips++
	trip := Trip{
		ID:                 fmt.Sprintf("trip_%s_%d", userID, user.HistorySummary.TotalTrips),
		Destination:        params.Destination,
		TravelDates:        params.TravelDates,
		Preferences:        params.Preferences,
		FlightSummary:      strutil.Truncate(params.FlightSummary, maxSummaryLen),
		HotelSummary:       strutil.Truncate(params.HotelSummary, maxSummaryLen),
		SatisfactionRating: params.SatisfactionRating,
		TokenUsage:         params.TokenUsage,
		LatencyMs:          params.LatencyMs,
		Timestamp:          s.nowFunc(),
	}
	for _, h := range params.ItineraryHighlights {
		if len(trip.ItineraryHighlights) >= maxHighlights {
			break
		}
		if h = strings.TrimSpace(h); h != "" {
			trip.ItineraryHighlights = append(trip.ItineraryHighlights, strutil.Truncate(h, maxHighlightLen))
		}
	}

	user.RecentTrips = append(user.RecentTrips, trip)

	// FIFO eviction: archive the oldest trip's signal before dropping its detail.
	if len(user.RecentTrips) > MaxRecentTrips {
		oldest := user.RecentTrips[0]
		user.RecentTrips = append([]Trip{}, user.RecentTrips[1:]...)
		archiveTrip(&user.HistorySummary, oldest)
	}

	s.updateSummary(&user.HistorySummary, user.RecentTrips)

	if err := s.save(ctx, doc); err != nil {
		s.logger.Error("failed to persist history", "user_id", userID, "error", err.Error())
		return err
	}
	return nil
}

// archiveTrip folds an evicted trip's destination and preference signal into
// the summary. It only adds what is not already captured, never removes.
func archiveTrip(summary *HistorySummary, trip Trip) {
	if !contains(summary.FavoriteDestinations, trip.Destination) &&
		len(summary.FavoriteDestinations) < maxFavoriteDestinations {
		summary.FavoriteDestinations = append(summary.FavoriteDestinations, trip.Destination)
	}

	for _, pref := range strings.Split(trip.Preferences, ",") {
		pref = strings.ToLower(strings.TrimSpace(pref))
		if pref == "" || contains(summary.PreferencePatterns, pref) {
			continue
		}
		if len(summary.PreferencePatterns) >= maxPreferencePatterns {
			break
		}
		summary.PreferencePatterns = append(summary.PreferencePatterns, pref)
	}
}

// updateSummary recomputes the derived summary fields from the current
// recent window. Window recomputation is authoritative; values captured by
// earlier archival that the window no longer covers are re-folded afterwards
// up to the caps, so archived signal is only ever added, never dropped.
func (s *Store) updateSummary(summary *HistorySummary, recentTrips []Trip) {
	if len(recentTrips) == 0 {
		return
	}

	var ratingSum, ratingN, tokenSum, tokenN, latencySum, latencyN int
	for _, t := range recentTrips {
		if t.SatisfactionRating > 0 {
			ratingSum += t.SatisfactionRating
			ratingN++
		}
		if t.TokenUsage > 0 {
			tokenSum += t.TokenUsage
			tokenN++
		}
		if t.LatencyMs > 0 {
			latencySum += t.LatencyMs
			latencyN++
		}
	}
	if ratingN > 0 {
		summary.AvgSatisfactionRating = round2(float64(ratingSum) / float64(ratingN))
	}
	if tokenN > 0 {
		summary.AvgTokenUsage = tokenSum / tokenN
	}
	if latencyN > 0 {
		summary.AvgLatencyMs = latencySum / latencyN
	}

	destinations := make([]string, 0, len(recentTrips))
	var prefTokens []string
	for _, t := range recentTrips {
		destinations = append(destinations, t.Destination)
		prefTokens = append(prefTokens, strutil.Tokenize(t.Preferences)...)
	}

	summary.FavoriteDestinations = foldArchived(
		mostCommon(destinations, maxFavoriteDestinations),
		summary.FavoriteDestinations, maxFavoriteDestinations)
	summary.PreferencePatterns = foldArchived(
		mostCommon(prefTokens, maxPreferencePatterns),
		summary.PreferencePatterns, maxPreferencePatterns)

	summary.LastUpdated = s.nowFunc()
}

// mostCommon returns up to n values ordered most-frequent-first, first-seen
// breaking frequency ties.
func mostCommon(values []string, n int) []string {
	counts := make(map[string]int, len(values))
	firstSeen := make(map[string]int, len(values))
	var order []string
	for i, v := range values {
		if _, ok := counts[v]; !ok {
			firstSeen[v] = i
			order = append(order, v)
		}
		counts[v]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// foldArchived appends previously captured values missing from the freshly
// recomputed list, respecting the cap.
func foldArchived(recomputed, previous []string, limit int) []string {
	for _, v := range previous {
		if len(recomputed) >= limit {
			break
		}
		if !contains(recomputed, v) {
			recomputed = append(recomputed, v)
		}
	}
	return recomputed
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
