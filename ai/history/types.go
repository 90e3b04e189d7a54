package history

import "time"

// Trip is one past travel experience with full detail.
type Trip struct {
	ID                  string    `json:"id"`
	Destination         string    `json:"destination"`
	TravelDates         string    `json:"travel_dates"`
	Preferences         string    `json:"preferences"`
	FlightSummary       string    `json:"flight_summary"`
	HotelSummary        string    `json:"hotel_summary"`
	ItineraryHighlights []string  `json:"itinerary_highlights"`
	SatisfactionRating  int       `json:"satisfaction_rating"`
	TokenUsage          int       `json:"token_usage"`
	LatencyMs           int       `json:"latency_ms"`
	Timestamp           time.Time `json:"timestamp"`
}

// HistorySummary is the compressed, unbounded-horizon view of a user's trips.
type HistorySummary struct {
	TotalTrips            int       `json:"totalTrips"`
	FavoriteDestinations  []string  `json:"favoriteDestinations"`
	PreferencePatterns    []string  `json:"preferencePatterns"`
	AvgSatisfactionRating float64   `json:"avgSatisfactionRating"`
	AvgTokenUsage         int       `json:"avgTokenUsage"`
	AvgLatencyMs          int       `json:"avgLatencyMs"`
	LastUpdated           time.Time `json:"lastUpdated"`
}

// UserRecord owns one recent-trip window and one summary.
type UserRecord struct {
	Name           string         `json:"name"`
	RecentTrips    []Trip         `json:"recentTrips"`
	HistorySummary HistorySummary `json:"historySummary"`
}

// TripParams carries the fields of a trip to record. The id and timestamp
// are assigned by the store.
type TripParams struct {
	Destination         string
	TravelDates         string
	Preferences         string
	FlightSummary       string
	HotelSummary        string
	ItineraryHighlights []string
	SatisfactionRating  int
	TokenUsage          int
	LatencyMs           int
}
