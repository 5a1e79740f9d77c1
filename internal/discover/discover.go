// Package discover lists featured destinations and finds new ones through photo search.
package discover

import (
	"context"
	"strings"
)

// Destination is a place offered for browsing.
type Destination struct {
	Name      string `json:"name"`
	Country   string `json:"country,omitempty"`
	Brief     string `json:"brief"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Continent string `json:"continent,omitempty"`
}

var featured = []Destination{
	{"Paris", "France", "The City of Light, known for the Eiffel Tower, art museums and its cuisine.", "https://images.unsplash.com/photo-1502602898657-3e91760cbb34?q=80&w=1000", "Europe"},
	{"Tokyo", "Japan", "A vibrant metropolis blending ultramodern and traditional Japanese culture.", "https://images.unsplash.com/photo-1503899036084-c55cdd92da26?q=80&w=1000", "Asia"},
	{"New York", "United States", "The Big Apple, famous for its skyline, Central Park and diverse neighborhoods.", "https://images.unsplash.com/photo-1496442226666-8d4d0e62e6e9?q=80&w=1000", "North America"},
	{"Rome", "Italy", "The Eternal City with ancient ruins, Vatican City and Italian cooking.", "https://images.unsplash.com/photo-1529260830199-42c24126f198?q=80&w=1000", "Europe"},
	{"Sydney", "Australia", "Known for its Opera House, harbor and beaches.", "https://images.unsplash.com/photo-1506973035872-a4ec16b8e8d9?q=80&w=1000", "Australia"},
	{"Dubai", "United Arab Emirates", "Luxury shopping, ultramodern architecture and nightlife.", "https://images.unsplash.com/photo-1512453979798-5ea266f8880c?q=80&w=1000", "Asia"},
	{"Barcelona", "Spain", "Gaudí's architecture, Mediterranean beaches and a lively culture.", "https://images.unsplash.com/photo-1539037116277-4db20889f2d4?q=80&w=1000", "Europe"},
	{"Cairo", "Egypt", "Home to the Pyramids of Giza and the Nile.", "https://images.unsplash.com/photo-1572252009286-268acec5ca0a?q=80&w=1000", "Africa"},
	{"Rio de Janeiro", "Brazil", "Christ the Redeemer, Copacabana beach and the carnival.", "https://images.unsplash.com/photo-1483729558449-99ef09a8c325?q=80&w=1000", "South America"},
	{"Bali", "Indonesia", "Beaches, rice terraces and Hindu temples.", "https://images.unsplash.com/photo-1537996194471-e657df975ab4?q=80&w=1000", "Asia"},
}

// Featured returns a copy of the curated destination list.
func Featured() []Destination {
	out := make([]Destination, len(featured))
	copy(out, featured)
	return out
}

// Filter returns the destinations whose name or country contains q, ignoring case.
// A blank q matches everything. The result is never nil.
func Filter(list []Destination, q string) []Destination {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]Destination, 0, len(list))
	for _, d := range list {
		if q == "" || strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.Country), q) {
			out = append(out, d)
		}
	}
	return out
}

type imageResolver interface {
	Resolve(ctx context.Context, query string) (string, bool)
}

// Catalog answers destination searches from the featured list, falling back to a
// landmark photo search for places it does not know.
type Catalog struct {
	images imageResolver
}

// NewCatalog constructs a Catalog.
func NewCatalog(images imageResolver) *Catalog {
	return &Catalog{images: images}
}

// Search returns the featured destinations matching q. When none match, q is offered as
// a new destination if a landmark photo can be found for it; otherwise the result is empty.
func (c *Catalog) Search(ctx context.Context, q string) []Destination {
	matches := Filter(featured, q)
	name := strings.TrimSpace(q)
	if len(matches) > 0 || name == "" {
		return matches
	}

	imageURL, ok := c.images.Resolve(ctx, name+" landmark")
	if !ok {
		return []Destination{}
	}
	return []Destination{{Name: name, Brief: "Explore " + name + ".", ImageURL: imageURL}}
}
