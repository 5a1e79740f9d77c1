// Package geocode looks up places by name for the destination search box.
package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/neexbeast/tripplanner/internal/trip"
	"github.com/neexbeast/tripplanner/internal/webclient"
)

// minQueryRunes is the shortest query sent to the geocoder.
const minQueryRunes = 3

// Place is one geocoding candidate.
type Place struct {
	Name        string        `json:"name"`
	Label       string        `json:"label"`
	Country     string        `json:"country,omitempty"`
	Coordinates trip.GeoPoint `json:"coordinates"`
}

// Location converts the candidate into the shape stored in trip selections.
func (p Place) Location() trip.Location {
	coords := p.Coordinates
	return trip.Location{Name: p.Label, Country: p.Country, Coordinates: &coords}
}

// Client queries the MapTiler geocoding API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

const maptilerDefaultURL = "https://api.maptiler.com/geocoding"

// NewClient constructs a Client with the given API key.
func NewClient(apiKey string) *Client {
	return &Client{apiKey: apiKey, baseURL: maptilerDefaultURL, client: webclient.New()}
}

// NewClientWithURL constructs a Client pointing at a custom base URL (for tests).
func NewClientWithURL(baseURL, apiKey string) *Client {
	return &Client{apiKey: apiKey, baseURL: baseURL, client: webclient.New()}
}

type maptilerResponse struct {
	Features []struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
		Context   []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"context"`
	} `json:"features"`
}

// Search returns candidates for query. Queries shorter than three characters return an
// empty list without calling the API.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryRunes {
		return []Place{}, nil
	}

	endpoint := c.baseURL + "/" + url.PathEscape(query) + ".json?key=" + url.QueryEscape(c.apiKey)

	var raw maptilerResponse
	if err := webclient.GetJSON(ctx, c.client, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("maptiler search for %q: %w", query, err)
	}

	places := make([]Place, 0, len(raw.Features))
	for _, f := range raw.Features {
		if len(f.Center) < 2 || f.PlaceName == "" {
			continue
		}

		country := ""
		if strings.HasPrefix(f.ID, "country") {
			country = f.Text
		}
		for _, ctxEntry := range f.Context {
			if strings.HasPrefix(ctxEntry.ID, "country") {
				country = ctxEntry.Text
				break
			}
		}

		places = append(places, Place{
			Name:        f.Text,
			Label:       f.PlaceName,
			Country:     country,
			Coordinates: trip.GeoPoint{Lat: f.Center[1], Lng: f.Center[0]},
		})
	}

	return places, nil
}
