package fewshot

import (
	"fmt"
	"strings"
)

// PromptType selects which component-specific trip detail to surface.
type PromptType string

const (
	PromptFlight    PromptType = "flight"
	PromptHotel     PromptType = "hotel"
	PromptItinerary PromptType = "itinerary"
)

// Summary rendering caps.
const (
	summaryTopDestinations = 5
	summaryTopPatterns     = 10
)

// FormatForPrompt renders a selection into the text fragment injected into
// the component prompt.
func FormatForPrompt(selection Selection, promptType PromptType) string {
	switch selection.Strategy {
	case StrategyNone:
		return "No previous travel history available for this user.\n"
	case StrategyFull:
		return formatFull(selection, promptType)
	case StrategyCondensed:
		return formatCondensed(selection)
	case StrategySummary:
		return formatSummary(selection)
	}
	return ""
}

func formatFull(selection Selection, promptType PromptType) string {
	trip := selection.Examples[0].Trip

	var b strings.Builder
	b.WriteString("RELEVANT PAST TRIP (High Similarity):\n\n")
	fmt.Fprintf(&b, "Destination: %s\n", trip.Destination)
	fmt.Fprintf(&b, "Preferences: %s\n", trip.Preferences)
	fmt.Fprintf(&b, "User Rating: %d/5\n\n", trip.SatisfactionRating)

	switch {
	case promptType == PromptFlight && trip.FlightSummary != "":
		fmt.Fprintf(&b, "Flight Booked: %s\n", trip.FlightSummary)
	case promptType == PromptHotel && trip.HotelSummary != "":
		fmt.Fprintf(&b, "Hotel Booked: %s\n", trip.HotelSummary)
	case promptType == PromptItinerary && len(trip.ItineraryHighlights) > 0:
		fmt.Fprintf(&b, "Highlights Enjoyed: %s\n", strings.Join(trip.ItineraryHighlights, ", "))
	}

	b.WriteString("\nBased on this successful past trip, provide similar recommendations:\n")
	return b.String()
}

func formatCondensed(selection Selection) string {
	var b strings.Builder
	b.WriteString("PAST TRIPS (Similar Interests):\n\n")
	for i, ex := range selection.Examples {
		fmt.Fprintf(&b, "%d. %s\n", i+1, ex.Trip.Destination)
		fmt.Fprintf(&b, "   Interests: %s\n", ex.Trip.Preferences)
		fmt.Fprintf(&b, "   Rating: %d/5\n", ex.Trip.SatisfactionRating)
	}
	b.WriteString("\nUse these preferences to guide your recommendations:\n")
	return b.String()
}

func formatSummary(selection Selection) string {
	summary := selection.Summary

	var b strings.Builder
	b.WriteString("USER TRAVEL PROFILE:\n\n")
	fmt.Fprintf(&b, "Total Trips: %d\n", summary.TotalTrips)

	if len(summary.FavoriteDestinations) > 0 {
		top := summary.FavoriteDestinations
		if len(top) > summaryTopDestinations {
			top = top[:summaryTopDestinations]
		}
		fmt.Fprintf(&b, "Favorite Destinations: %s\n", strings.Join(top, ", "))
	}
	if len(summary.PreferencePatterns) > 0 {
		top := summary.PreferencePatterns
		if len(top) > summaryTopPatterns {
			top = top[:summaryTopPatterns]
		}
		fmt.Fprintf(&b, "Common Interests: %s\n", strings.Join(top, ", "))
	}

	fmt.Fprintf(&b, "Average Satisfaction: %g/5\n", summary.AvgSatisfactionRating)
	b.WriteString("\nProvide recommendations aligned with these general preferences:\n")
	return b.String()
}
