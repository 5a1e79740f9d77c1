package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/neexbeast/tripplanner/internal/trip"
)

// DefaultTimeout bounds one generation call.
const DefaultTimeout = 60 * time.Second

const tripPromptTemplate = `Generate Travel Plan for starting at: {origin}, traveling to Location: {destination}, ` +
	`from {startDate} to {endDate} ({days} Days and {nights} Night) for {traveler} with a {budget} budget ` +
	`with Flight details (departure on {startDate} and return on {endDate}), Flight Price with Booking url, ` +
	`Hotels options list with HotelName, Hotel address, Price, hotel image url, geo coordinates, rating, descriptions ` +
	`and Places to visit nearby with placeName, Place Details, Place Image Url, Geo Coordinates, ticket Pricing, ` +
	`Time to travel each of the location for {days} days and {nights} night with each day plan with best time to visit ` +
	`in JSON format. Use the keys trip_details, flights.details, hotels.options and itinerary with keys day1..dayN, ` +
	`each day holding activity, time and places_to_visit.`

const locationPromptTemplate = `Generate detailed and accurate travel information about {place} as a tourist destination.

Your response MUST be in this EXACT JSON format:
{
  "introduction": "Comprehensive overview with interesting facts",
  "famous_dishes": [{"name": "Local dish name", "description": "Description of the dish"}],
  "places_to_visit": [{"name": "Attraction name", "description": "Description", "visit_duration": "Estimated time needed"}],
  "cost_estimates": {
    "accommodation": {"budget": "Price range", "mid_range": "Price range", "luxury": "Price range"},
    "food_per_day": "Food cost per day",
    "local_transportation": "Transportation cost",
    "sightseeing_activities": "Activities cost",
    "total_estimate": "Total budget for a 7-day trip"
  }
}

Include at least 4 famous dishes and 5 real attractions. Return ONLY the JSON.`

// Dish is a local dish in a location guide.
type Dish struct {
	Name        trip.Text `json:"name"`
	Description trip.Text `json:"description"`
}

// Attraction is a place worth visiting in a location guide.
type Attraction struct {
	Name          trip.Text `json:"name"`
	Description   trip.Text `json:"description"`
	VisitDuration trip.Text `json:"visit_duration"`
}

// AccommodationCosts are nightly price ranges by comfort level.
type AccommodationCosts struct {
	Budget   trip.Text `json:"budget"`
	MidRange trip.Text `json:"mid_range"`
	Luxury   trip.Text `json:"luxury"`
}

// CostEstimates summarize what a week in the location costs.
type CostEstimates struct {
	Accommodation         AccommodationCosts `json:"accommodation"`
	FoodPerDay            trip.Text          `json:"food_per_day"`
	LocalTransportation   trip.Text          `json:"local_transportation"`
	SightseeingActivities trip.Text          `json:"sightseeing_activities"`
	TotalEstimate         trip.Text          `json:"total_estimate"`
}

// LocationDetails is a generated travel guide for one location.
type LocationDetails struct {
	Name          string         `json:"name"`
	Country       string         `json:"country"`
	Introduction  trip.Text      `json:"introduction"`
	FamousDishes  []Dish         `json:"famous_dishes"`
	PlacesToVisit []Attraction   `json:"places_to_visit"`
	CostEstimates *CostEstimates `json:"cost_estimates"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// LocationKey identifies a location guide: "<name>_<country>", lower-cased, with
// "unknown" standing in for a missing country.
func LocationKey(name, country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		country = "unknown"
	}
	return strings.ToLower(strings.TrimSpace(name) + "_" + country)
}

// Planner builds prompts, calls a Generator and validates what comes back.
type Planner struct {
	gen     Generator
	timeout time.Duration
	now     func() time.Time
}

// NewPlanner constructs a Planner. A non-positive timeout selects DefaultTimeout.
func NewPlanner(gen Generator, timeout time.Duration) *Planner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Planner{gen: gen, timeout: timeout, now: time.Now}
}

// PlanTrip generates a trip plan for sel and returns it as a JSON object that
// trip.DecodePlan accepts. Every failure wraps ErrGenerationFailed.
func (p *Planner) PlanTrip(ctx context.Context, sel trip.Selections) (json.RawMessage, error) {
	destination := sel.Destination.Name

	raw, err := p.generateJSON(ctx, TripPrompt(sel))
	if err != nil {
		return nil, fmt.Errorf("planning trip to %s: %w", destination, err)
	}

	if _, err := trip.DecodePlan(raw); err != nil {
		return nil, fmt.Errorf("%w: planning trip to %s: %w", ErrGenerationFailed, destination, err)
	}

	return raw, nil
}

// DescribeLocation generates a travel guide for name in country. The answer must carry
// an introduction, dish and attraction lists and cost estimates.
func (p *Planner) DescribeLocation(ctx context.Context, name, country string) (*LocationDetails, error) {
	raw, err := p.generateJSON(ctx, LocationPrompt(name, country))
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", name, err)
	}

	var details LocationDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, fmt.Errorf("%w: decoding guide for %s: %w", ErrGenerationFailed, name, err)
	}

	if details.Introduction == "" || details.FamousDishes == nil || details.PlacesToVisit == nil || details.CostEstimates == nil {
		return nil, fmt.Errorf("%w: guide for %s is missing required fields", ErrGenerationFailed, name)
	}

	details.Name = name
	details.Country = country
	details.GeneratedAt = p.now().UTC()
	return &details, nil
}

func (p *Planner) generateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	text, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	return ExtractJSON(text)
}

// TripPrompt fills the trip plan prompt from the user's selections.
func TripPrompt(sel trip.Selections) string {
	days := sel.DayCount()
	origin := ""
	if sel.Origin != nil {
		origin = sel.Origin.Name
	}

	return strings.NewReplacer(
		"{origin}", origin,
		"{destination}", sel.Destination.Name,
		"{startDate}", sel.StartDate,
		"{endDate}", sel.EndDate,
		"{days}", strconv.Itoa(days),
		"{nights}", strconv.Itoa(max(days-1, 0)),
		"{traveler}", sel.Traveler.Display(),
		"{budget}", sel.Budget.Display(),
	).Replace(tripPromptTemplate)
}

// LocationPrompt fills the location guide prompt.
func LocationPrompt(name, country string) string {
	place := strings.TrimSpace(name)
	if c := strings.TrimSpace(country); c != "" {
		place += ", " + c
	}
	return strings.ReplaceAll(locationPromptTemplate, "{place}", place)
}
