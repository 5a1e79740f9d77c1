package api

import (
	"context"
	"encoding/json"

	"github.com/neexbeast/tripplanner/internal/discover"
	"github.com/neexbeast/tripplanner/internal/generate"
	"github.com/neexbeast/tripplanner/internal/geocode"
	"github.com/neexbeast/tripplanner/internal/itinerary"
	"github.com/neexbeast/tripplanner/internal/trip"
)

// TripRepo defines the trip storage operations needed by handlers.
type TripRepo interface {
	ListTripsByOwner(ctx context.Context, ownerEmail string) ([]trip.RawRecord, error)
	GetTrip(ctx context.Context, id string) (*trip.RawRecord, error)
	PutTrip(ctx context.Context, rec trip.RawRecord) error
}

// LocationRepo defines the location guide storage operations needed by handlers.
type LocationRepo interface {
	GetLocation(ctx context.Context, name, country string) (*generate.LocationDetails, error)
	UpsertLocation(ctx context.Context, details *generate.LocationDetails) error
}

// LocationCache defines the cache operations needed by handlers.
type LocationCache interface {
	Get(ctx context.Context, name, country string) (*generate.LocationDetails, error)
	Set(ctx context.Context, name, country string, details *generate.LocationDetails) error
	Delete(ctx context.Context, name, country string) error
}

// Planner defines the generation operations needed by handlers.
type Planner interface {
	PlanTrip(ctx context.Context, sel trip.Selections) (json.RawMessage, error)
	DescribeLocation(ctx context.Context, name, country string) (*generate.LocationDetails, error)
}

// ImageResolver finds a photo for a free-text query.
type ImageResolver interface {
	Resolve(ctx context.Context, query string) (string, bool)
}

// DayEnricher attaches images to itinerary days.
type DayEnricher interface {
	Enrich(ctx context.Context, days []itinerary.Day) ([]itinerary.Day, error)
}

// PlaceSearcher geocodes a free-text place query.
type PlaceSearcher interface {
	Search(ctx context.Context, query string) ([]geocode.Place, error)
}

// DestinationFinder answers destination browsing and search.
type DestinationFinder interface {
	Search(ctx context.Context, query string) []discover.Destination
}
