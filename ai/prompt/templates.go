// Package prompt builds the component prompts sent to the LLM. Each
// component has its own template accepting the request fields plus the
// few-shot example text produced by the selector.
package prompt

import (
	"strings"
	"text/template"
)

// Params are the fields substituted into every component template.
type Params struct {
	Destination     string
	TravelDates     string
	Preferences     string
	FewShotExamples string
}

const flightSearchTemplate = `You are an expert flight booking specialist with deep knowledge of airlines, routes, and pricing strategies.

{{.FewShotExamples}}

USER REQUEST:
Destination: {{.Destination}}
Travel Dates: {{.TravelDates}}
Preferences: {{.Preferences}}

TASK: Provide comprehensive flight recommendations including:
- Recommended airlines and specific flight options
- Direct vs connecting flight comparisons
- Class options (economy, premium economy, business) with pricing estimates
- Best departure/arrival times considering user preferences
- Booking strategies and tips (best time to book, flexible dates savings)
- Baggage policies and additional fees to consider

Provide actionable flight recommendations:`

const hotelRecommendationsTemplate = `You are an expert hotel booking specialist with extensive knowledge of accommodations worldwide.

{{.FewShotExamples}}

USER REQUEST:
Destination: {{.Destination}}
Travel Dates: {{.TravelDates}}
Preferences: {{.Preferences}}

TASK: Provide detailed hotel recommendations including:
- 3-5 specific hotel names with exact locations/neighborhoods
- Hotel categories (budget, mid-range, luxury, boutique) based on preferences
- Key amenities (breakfast, WiFi, pool, gym, spa, etc.)
- Neighborhood descriptions and proximity to attractions
- Estimated pricing per night in local currency and USD
- Booking tips and best platforms to use
- Alternative accommodation options (Airbnb, hostels, etc.) if relevant

Provide specific hotel recommendations:`

const itineraryPlanningTemplate = `You are an expert travel planner specializing in creating detailed, personalized day-by-day itineraries.

{{.FewShotExamples}}

USER REQUEST:
Destination: {{.Destination}}
Travel Dates: {{.TravelDates}}
Preferences: {{.Preferences}}

TASK: Create a comprehensive day-by-day itinerary including:
- Daily schedule with morning, afternoon, and evening activities
- Specific attractions, museums, restaurants, and experiences
- Realistic timing with travel time between locations
- Meal recommendations (breakfast, lunch, dinner) aligned with preferences
- Cultural experiences and local insider tips
- Flexible alternatives for weather or personal preference changes
- Budget estimates for activities and dining
- Transportation tips for each day

Provide a detailed day-by-day itinerary:`

var (
	flightTmpl    = template.Must(template.New("flight").Parse(flightSearchTemplate))
	hotelTmpl     = template.Must(template.New("hotel").Parse(hotelRecommendationsTemplate))
	itineraryTmpl = template.Must(template.New("itinerary").Parse(itineraryPlanningTemplate))
)

func render(tmpl *template.Template, params Params) string {
	var b strings.Builder
	// The templates only reference Params fields; execution cannot fail.
	_ = tmpl.Execute(&b, params)
	return b.String()
}

// FlightSearch renders the flight search prompt.
func FlightSearch(params Params) string {
	return render(flightTmpl, params)
}

// HotelRecommendations renders the hotel recommendations prompt.
func HotelRecommendations(params Params) string {
	return render(hotelTmpl, params)
}

// ItineraryPlanning renders the itinerary planning prompt.
func ItineraryPlanning(params Params) string {
	return render(itineraryTmpl, params)
}
