package itinerary

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/neexbeast/tripplanner/internal/trip"
)

// Activity is one timed entry of a day.
type Activity struct {
	Time        string `json:"time"`
	Description string `json:"description"`
}

// Place is a place suggested for a day.
type Place struct {
	Name        string         `json:"name"`
	Details     string         `json:"details,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
	Coordinates *trip.GeoPoint `json:"coordinates,omitempty"`
	TicketPrice string         `json:"ticket_price,omitempty"`
	TravelTime  string         `json:"travel_time,omitempty"`
}

// Day is one normalized itinerary day.
type Day struct {
	DayNumber  int        `json:"day_number"`
	Activities []Activity `json:"activities"`
	Places     []Place    `json:"places_to_visit,omitempty"`
	ImageURL   string     `json:"image_url,omitempty"`
}

// Normalize turns a raw itinerary of any recognized shape into days sorted by day
// number. It never fails: unrecognized input yields an empty, non-nil slice.
func Normalize(raw json.RawMessage) []Day {
	return Days(Classify(raw))
}

// Days expands a classified shape into sorted days.
func Days(s Shape) []Day {
	days := []Day{}

	switch v := s.(type) {
	case DayKeyed:
		days = dayKeyedDays(v)
	case Wrapped:
		days = Days(v.Inner)
	case Sequence:
		for i, rec := range v.Records {
			days = append(days, dayFromRecord(i+1, rec))
		}
	case Single:
		days = append(days, dayFromRecord(1, v.Record))
	case Empty:
	}

	sort.SliceStable(days, func(i, j int) bool { return days[i].DayNumber < days[j].DayNumber })
	return days
}

func dayKeyedDays(v DayKeyed) []Day {
	keys := make([]string, 0, len(v.Days))
	for k := range v.Days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	days := make([]Day, 0, len(keys))
	seen := make(map[int]string, len(keys))
	for _, k := range keys {
		n, ok := dayNumber(k)
		if !ok {
			slog.Warn("skipping itinerary day with malformed key", "key", k)
			continue
		}
		if kept, dup := seen[n]; dup {
			slog.Warn("skipping duplicate itinerary day", "key", k, "kept", kept)
			continue
		}
		seen[n] = k
		days = append(days, dayFromRecord(n, v.Days[k]))
	}
	return days
}

// dayNumber parses the numeric suffix of "day3", "Day_3" or "day 03".
func dayNumber(key string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(key))
	s = strings.TrimPrefix(s, "day")
	s = strings.TrimLeft(s, "_- ")

	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

type dayWire struct {
	Activity    json.RawMessage `json:"activity"`
	Activities  json.RawMessage `json:"activities"`
	Description json.RawMessage `json:"description"`
	Time        json.RawMessage `json:"time"`
	Places      json.RawMessage `json:"places_to_visit"`
}

// dayFromRecord decodes one day record. A bare string or list is read as the
// activity descriptions.
func dayFromRecord(n int, raw json.RawMessage) Day {
	day := Day{DayNumber: n, Activities: []Activity{}}

	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return day
	}

	var w dayWire
	if b[0] == '{' {
		if err := json.Unmarshal(b, &w); err != nil {
			slog.Warn("skipping unreadable itinerary day", "day", n, "err", err)
			return day
		}
	} else {
		w.Activity = b
	}

	day.Activities = pairActivities(firstPresent(w.Activity, w.Activities, w.Description), w.Time)
	day.Places = places(w.Places)
	return day
}

// pairActivities lifts descriptions and times to sequences and zips them. The shorter
// side is padded with empty strings. An explicit time list wins over a time carried
// inside an activity object.
func pairActivities(descRaw, timeRaw json.RawMessage) []Activity {
	descs := entries(descRaw)
	times := entries(timeRaw)

	n := max(len(descs), len(times))
	out := make([]Activity, n)
	for i := range n {
		if i < len(descs) {
			out[i] = Activity{Time: descs[i].time, Description: descs[i].text}
		}
		if i < len(times) && times[i].text != "" {
			out[i].Time = times[i].text
		}
	}
	return out
}

type entry struct {
	text string
	time string
}

// entries lifts a scalar, list or object into a list of text entries.
func entries(raw json.RawMessage) []entry {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			return nil
		}
		out := make([]entry, 0, len(items))
		for _, item := range items {
			out = append(out, entryOf(item))
		}
		return out
	}

	return []entry{entryOf(b)}
}

func entryOf(raw json.RawMessage) entry {
	b := bytes.TrimSpace(raw)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			Description trip.Text `json:"description"`
			Activity    trip.Text `json:"activity"`
			Name        trip.Text `json:"name"`
			Time        trip.Text `json:"time"`
		}
		if err := json.Unmarshal(b, &obj); err == nil {
			return entry{
				text: firstText(obj.Description, obj.Activity, obj.Name),
				time: obj.Time.String(),
			}
		}
	}

	var t trip.Text
	if err := json.Unmarshal(b, &t); err != nil {
		return entry{}
	}
	return entry{text: t.String()}
}

type placeWire struct {
	PlaceName    trip.Text      `json:"place_name"`
	Name         trip.Text      `json:"name"`
	PlaceDetails trip.Text      `json:"place_details"`
	Details      trip.Text      `json:"details"`
	Description  trip.Text      `json:"description"`
	ImageURL     trip.Text      `json:"place_image_url"`
	Coordinates  *trip.GeoPoint `json:"geo_coordinates"`
	TicketPrice  trip.Text      `json:"ticket_pricing"`
	TravelTime   trip.Text      `json:"time_to_travel"`
}

func places(raw json.RawMessage) []Place {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return nil
	}

	var items []json.RawMessage
	switch b[0] {
	case '[':
		if err := json.Unmarshal(b, &items); err != nil {
			return nil
		}
	case '{', '"':
		items = []json.RawMessage{b}
	default:
		return nil
	}

	out := make([]Place, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 {
			continue
		}

		var p placeWire
		if item[0] == '{' {
			if err := json.Unmarshal(item, &p); err != nil {
				continue
			}
		} else if err := json.Unmarshal(item, &p.Name); err != nil {
			continue
		}

		place := Place{
			Name:        firstText(p.PlaceName, p.Name),
			Details:     firstText(p.PlaceDetails, p.Details, p.Description),
			ImageURL:    p.ImageURL.String(),
			TicketPrice: p.TicketPrice.String(),
			TravelTime:  p.TravelTime.String(),
		}
		if !p.Coordinates.IsZero() {
			place.Coordinates = p.Coordinates
		}
		if place.Name == "" && place.Details == "" {
			continue
		}
		out = append(out, place)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstPresent(candidates ...json.RawMessage) json.RawMessage {
	for _, c := range candidates {
		b := bytes.TrimSpace(c)
		if len(b) > 0 && !bytes.Equal(b, []byte("null")) {
			return b
		}
	}
	return nil
}

func firstText(candidates ...trip.Text) string {
	for _, c := range candidates {
		if s := strings.TrimSpace(c.String()); s != "" {
			return s
		}
	}
	return ""
}
