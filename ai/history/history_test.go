package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/tripsense/store/db/file"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	driver, err := file.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	return New(driver)
}

func TestGetUserDataUnknownUser(t *testing.T) {
	s := newTestStore(t)

	record := s.GetUserData(context.Background(), "nobody")
	assert.Equal(t, "Guest User", record.Name)
	assert.Empty(t, record.RecentTrips)
	assert.Zero(t, record.HistorySummary.TotalTrips)
}

func TestAddTripAssignsSequentialIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AddTrip(ctx, "user_001", TripParams{
			Destination: "Paris, France",
			TravelDates: "June 2026",
			Preferences: "art museums, local food",
		}))
	}

	trips := s.GetRecentTrips(ctx, "user_001", 0)
	require.Len(t, trips, 3)
	assert.Equal(t, "trip_user_001_1", trips[0].ID)
	assert.Equal(t, "trip_user_001_3", trips[2].ID)
	assert.Equal(t, 3, s.GetSummary(ctx, "user_001").TotalTrips)
}

func TestGetRecentTripsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddTrip(ctx, "u", TripParams{Destination: fmt.Sprintf("City %d", i)}))
	}

	assert.Len(t, s.GetRecentTrips(ctx, "u", 2), 2)
	assert.Len(t, s.GetRecentTrips(ctx, "u", 0), 5)
	assert.Len(t, s.GetRecentTrips(ctx, "u", 100), 5)
	// A limit keeps the newest trips.
	assert.Equal(t, "City 4", s.GetRecentTrips(ctx, "u", 1)[0].Destination)
	assert.Equal(t, "City 3", s.GetRecentTrips(ctx, "u", 2)[0].Destination)

	latest, ok := s.LatestTrip(ctx, "u")
	require.True(t, ok)
	assert.Equal(t, "City 4", latest.Destination)

	_, ok = s.LatestTrip(ctx, "nobody")
	assert.False(t, ok)
}

func TestFIFOEvictionAndArchival(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddTrip(ctx, "traveler", TripParams{
		Destination:        "Reykjavik, Iceland",
		Preferences:        "northern lights",
		SatisfactionRating: 4,
	}))
	for i := 2; i <= MaxRecentTrips+1; i++ {
		require.NoError(t, s.AddTrip(ctx, "traveler", TripParams{
			Destination:        fmt.Sprintf("City %d", i%3),
			Preferences:        fmt.Sprintf("interest%d", i%3),
			SatisfactionRating: 4,
		}))
	}

	record := s.GetUserData(ctx, "traveler")
	require.Len(t, record.RecentTrips, MaxRecentTrips)

	// The first trip was evicted from the window but its destination was
	// archived into the summary.
	assert.Equal(t, "City 2", record.RecentTrips[0].Destination)
	assert.NotContains(t, destinationsOf(record.RecentTrips), "Reykjavik, Iceland")
	assert.Contains(t, record.HistorySummary.FavoriteDestinations, "Reykjavik, Iceland")
	assert.Equal(t, MaxRecentTrips+1, record.HistorySummary.TotalTrips)
	assert.InDelta(t, 4.0, record.HistorySummary.AvgSatisfactionRating, 1e-9)
}

func destinationsOf(trips []Trip) []string {
	out := make([]string, 0, len(trips))
	for _, t := range trips {
		out = append(out, t.Destination)
	}
	return out
}

func TestSummaryAveragesSkipUnratedTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddTrip(ctx, "u", TripParams{Destination: "Rome", SatisfactionRating: 5, TokenUsage: 1000, LatencyMs: 900}))
	require.NoError(t, s.AddTrip(ctx, "u", TripParams{Destination: "Rome", SatisfactionRating: 0, TokenUsage: 0, LatencyMs: 0}))
	require.NoError(t, s.AddTrip(ctx, "u", TripParams{Destination: "Rome", SatisfactionRating: 4, TokenUsage: 2000, LatencyMs: 1100}))

	summary := s.GetSummary(ctx, "u")
	assert.InDelta(t, 4.5, summary.AvgSatisfactionRating, 1e-9)
	assert.Equal(t, 1500, summary.AvgTokenUsage)
	assert.Equal(t, 1000, summary.AvgLatencyMs)
}

func TestSummaryFrequencyOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddTrip(ctx, "u", TripParams{Destination: "Kyoto, Japan", Preferences: "temples, food"}))
	require.NoError(t, s.AddTrip(ctx, "u", TripParams{Destination: "Lisbon, Portugal", Preferences: "food, surfing"}))
	require.NoError(t, s.AddTrip(ctx, "u", TripParams{Destination: "Kyoto, Japan", Preferences: "temples, gardens"}))

	summary := s.GetSummary(ctx, "u")
	require.NotEmpty(t, summary.FavoriteDestinations)
	assert.Equal(t, "Kyoto, Japan", summary.FavoriteDestinations[0])
	// "temples" and "food" appear twice each; "temples" was seen first.
	assert.Equal(t, "temples", summary.PreferencePatterns[0])
}

func TestTripFieldTruncation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, s.AddTrip(ctx, "u", TripParams{
		Destination:         "Oslo, Norway",
		FlightSummary:       string(long),
		HotelSummary:        string(long),
		ItineraryHighlights: []string{"a", "b", "c", "d", "e", "f", "g"},
	}))

	trip := s.GetRecentTrips(ctx, "u", 1)[0]
	assert.Len(t, trip.FlightSummary, 203) // 200 runes + "..."
	assert.Len(t, trip.HotelSummary, 203)
	assert.Len(t, trip.ItineraryHighlights, 5)
}

func TestCorruptDocumentDegradesToEmpty(t *testing.T) {
	driver, err := file.NewDB(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, driver.SaveDocument(ctx, "user_history", []byte("{not json")))

	s := New(driver)
	record := s.GetUserData(ctx, "anyone")
	assert.Empty(t, record.RecentTrips)

	// The store stays writable after recovering.
	require.NoError(t, s.AddTrip(ctx, "anyone", TripParams{Destination: "Lima, Peru"}))
	assert.Len(t, s.GetRecentTrips(ctx, "anyone", 0), 1)
}

func TestHistorySurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	driver, err := file.NewDB(dir)
	require.NoError(t, err)
	ctx := context.Background()

	s := New(driver)
	require.NoError(t, s.AddTrip(ctx, "u", TripParams{Destination: "Tokyo, Japan", Preferences: "sushi, temples"}))

	reopened, err := file.NewDB(dir)
	require.NoError(t, err)
	s2 := New(reopened)
	trips := s2.GetRecentTrips(ctx, "u", 0)
	require.Len(t, trips, 1)
	assert.Equal(t, "Tokyo, Japan", trips[0].Destination)
	assert.WithinDuration(t, time.Now(), trips[0].Timestamp, time.Minute)
}
