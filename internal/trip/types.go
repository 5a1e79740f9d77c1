package trip

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// StatusPlanned is the status given to every newly created trip.
const StatusPlanned = "planned"

// RawRecord is a trip exactly as it is persisted. Selections and AiPlan may each hold a
// JSON object or a JSON string that encodes one; AiPlan may also be absent.
type RawRecord struct {
	ID         string
	OwnerEmail string
	Selections json.RawMessage
	AiPlan     json.RawMessage
	Status     string
	CreatedAt  time.Time
}

// Record is a decoded trip.
type Record struct {
	ID         string     `json:"id"`
	OwnerEmail string     `json:"owner_email"`
	Selections Selections `json:"selections"`
	AiPlan     *Plan      `json:"ai_plan,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Location is a place picked through the geocoding search.
type Location struct {
	Name        string    `json:"name"`
	Country     string    `json:"country,omitempty"`
	Coordinates *GeoPoint `json:"coordinates,omitempty"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
}

// Selections holds the trip parameters chosen by the user. The JSON keys follow the
// blob written by the client apps.
type Selections struct {
	Origin      *Location `json:"startingLocationInfo,omitempty"`
	Destination Location  `json:"locationInfo"`
	StartDate   string    `json:"startDate,omitempty"`
	EndDate     string    `json:"endDate,omitempty"`
	Traveler    Traveler  `json:"traveler"`
	Budget      Budget    `json:"budget"`
	People      Text      `json:"people,omitempty"`
	TotalDays   Number    `json:"totalNoOfDays,omitempty"`
}

// DayCount returns the stored total day count, or derives it from the dates. Both the
// first and the last day count, so a trip that starts and ends on the same date lasts 1 day.
func (s Selections) DayCount() int {
	if n := s.TotalDays.Int(); n > 0 {
		return n
	}

	start, okStart := parseDate(s.StartDate)
	end, okEnd := parseDate(s.EndDate)
	if !okStart || !okEnd {
		return 0
	}

	diff := int(calendarDay(end).Sub(calendarDay(start)).Hours() / 24)
	if diff < 0 {
		return 0
	}
	return diff + 1
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", time.DateOnly}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TravelerOption is the structured traveler choice.
type TravelerOption struct {
	ID          Text   `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"desc,omitempty"`
	People      Text   `json:"people,omitempty"`
}

// Traveler is either a plain label ("A Couple") or a structured option. Both forms are
// kept as received; Option is nil for the plain form.
type Traveler struct {
	Label  string
	Option *TravelerOption
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Traveler) UnmarshalJSON(b []byte) error {
	*t = Traveler{}
	return decodeLabelOrOption(b, &t.Label, &t.Option)
}

// MarshalJSON re-emits the form the traveler was received in.
func (t Traveler) MarshalJSON() ([]byte, error) {
	if t.Option != nil {
		return json.Marshal(t.Option)
	}
	return json.Marshal(t.Label)
}

// Display renders the traveler for summaries.
func (t Traveler) Display() string {
	if t.Option == nil {
		return t.Label
	}
	if t.Option.Description == "" {
		return t.Option.Title
	}
	return t.Option.Title + " - " + t.Option.Description
}

// BudgetOption is the structured budget choice.
type BudgetOption struct {
	ID          Text   `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"desc,omitempty"`
}

// Budget is either a plain label ("Moderate") or a structured option.
type Budget struct {
	Label  string
	Option *BudgetOption
}

// UnmarshalJSON implements json.Unmarshaler.
func (bg *Budget) UnmarshalJSON(b []byte) error {
	*bg = Budget{}
	return decodeLabelOrOption(b, &bg.Label, &bg.Option)
}

// MarshalJSON re-emits the form the budget was received in.
func (bg Budget) MarshalJSON() ([]byte, error) {
	if bg.Option != nil {
		return json.Marshal(bg.Option)
	}
	return json.Marshal(bg.Label)
}

// Display renders the budget for summaries.
func (bg Budget) Display() string {
	if bg.Option != nil {
		return bg.Option.Title
	}
	return bg.Label
}

func decodeLabelOrOption[T any](b []byte, label *string, option **T) error {
	b = bytes.TrimSpace(b)
	if isAbsent(b) {
		return nil
	}

	if b[0] == '{' {
		var opt T
		if err := json.Unmarshal(b, &opt); err != nil {
			return fmt.Errorf("decoding option: %w", err)
		}
		*option = &opt
		return nil
	}

	var t Text
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	*label = t.String()
	return nil
}

// Summary is the free-form overview the model writes for a trip.
type Summary struct {
	Destination     Text `json:"destination,omitempty"`
	Duration        Text `json:"duration,omitempty"`
	Travelers       Text `json:"travelers,omitempty"`
	Budget          Text `json:"budget,omitempty"`
	BestTimeToVisit Text `json:"best_time_to_visit,omitempty"`
}

// Flight is one flight option.
type Flight struct {
	Airline       Text   `json:"airline"`
	FlightNumber  Text   `json:"flight_number,omitempty"`
	DepartureCity Text   `json:"departure_city,omitempty"`
	DepartureTime Text   `json:"departure_time,omitempty"`
	DepartureDate Text   `json:"departure_date,omitempty"`
	ArrivalCity   Text   `json:"arrival_city,omitempty"`
	ArrivalTime   Text   `json:"arrival_time,omitempty"`
	ArrivalDate   Text   `json:"arrival_date,omitempty"`
	Price         Text   `json:"price,omitempty"`
	BookingURL    string `json:"booking_url,omitempty"`
}

// Hotel is one hotel option.
type Hotel struct {
	Name        Text      `json:"hotel_name"`
	Address     Text      `json:"hotel_address,omitempty"`
	Price       Text      `json:"price,omitempty"`
	Rating      Number    `json:"rating,omitempty"`
	Description Text      `json:"description,omitempty"`
	ImageURL    string    `json:"hotel_image_url,omitempty"`
	Coordinates *GeoPoint `json:"geo_coordinates,omitempty"`
}

// Plan is the generated part of a trip. Itinerary is kept raw because its shape varies
// between generations; see the itinerary package.
type Plan struct {
	Summary   Summary         `json:"trip_details"`
	Flights   []Flight        `json:"flights,omitempty"`
	Hotels    []Hotel         `json:"hotels,omitempty"`
	Itinerary json.RawMessage `json:"itinerary,omitempty"`
}

type planWire struct {
	Summary   Summary         `json:"trip_details"`
	Flights   json.RawMessage `json:"flights"`
	Hotels    json.RawMessage `json:"hotels"`
	Itinerary json.RawMessage `json:"itinerary"`
}

// UnmarshalJSON accepts flights as {"details":[...]} or a bare list, and hotels as
// {"options":[...]} or a bare list.
func (p *Plan) UnmarshalJSON(b []byte) error {
	var w planWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	var flights []Flight
	if err := decodeList(w.Flights, "details", &flights); err != nil {
		return fmt.Errorf("decoding flights: %w", err)
	}

	var hotels []Hotel
	if err := decodeList(w.Hotels, "options", &hotels); err != nil {
		return fmt.Errorf("decoding hotels: %w", err)
	}
	for i := range hotels {
		hotels[i].Coordinates = point(hotels[i].Coordinates)
	}

	*p = Plan{
		Summary:   w.Summary,
		Flights:   flights,
		Hotels:    hotels,
		Itinerary: w.Itinerary,
	}
	if isAbsent(p.Itinerary) {
		p.Itinerary = nil
	}
	return nil
}

// decodeList decodes raw into dst whether it is a bare list or an object wrapping the
// list under wrapperKey.
func decodeList[T any](raw json.RawMessage, wrapperKey string, dst *[]T) error {
	b := bytes.TrimSpace(raw)
	if isAbsent(b) {
		return nil
	}

	switch b[0] {
	case '[':
		return json.Unmarshal(b, dst)
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(b, &wrapper); err != nil {
			return err
		}
		inner, ok := wrapper[wrapperKey]
		if !ok || isAbsent(inner) {
			return nil
		}
		return json.Unmarshal(inner, dst)
	default:
		return fmt.Errorf("expected a list or an object with %q", wrapperKey)
	}
}
