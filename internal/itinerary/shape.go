package itinerary

import (
	"bytes"
	"encoding/json"
	"strings"
)

// maxNesting bounds string-encoded and wrapped itineraries.
const maxNesting = 4

// Shape is the recognized layout of a generated itinerary. Classify returns exactly one
// of DayKeyed, Wrapped, Sequence, Single or Empty.
type Shape interface {
	shape()
}

// DayKeyed is an object keyed "day1".."dayN". Keys whose suffix is not a positive
// number are kept here and dropped during normalization.
type DayKeyed struct {
	Days map[string]json.RawMessage
}

// Wrapped is an object that carries the real itinerary under an "itinerary" (or "days") key.
type Wrapped struct {
	Inner Shape
}

// Sequence is a list of day records without day numbers.
type Sequence struct {
	Records []json.RawMessage
}

// Single is one bare activity record.
type Single struct {
	Record json.RawMessage
}

// Empty is anything that carries no recognizable day.
type Empty struct{}

func (DayKeyed) shape() {}
func (Wrapped) shape()  {}
func (Sequence) shape() {}
func (Single) shape()   {}
func (Empty) shape()    {}

// wrapperKeys are tried in order once an object has no day keys.
var wrapperKeys = []string{"itinerary", "days"}

// recordKeys mark an object as a single day record.
var recordKeys = []string{"activity", "activities", "description", "time", "places_to_visit"}

// Classify detects the shape of a raw itinerary. Detection order: day keys, wrapper
// key, list, bare record. A JSON string is decoded and classified in its place.
func Classify(raw json.RawMessage) Shape {
	return classify(raw, 0)
}

func classify(raw json.RawMessage, depth int) Shape {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 || depth > maxNesting {
		return Empty{}
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return Empty{}
		}
		return classify(json.RawMessage(s), depth+1)

	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(b, &records); err != nil || len(records) == 0 {
			return Empty{}
		}
		return Sequence{Records: records}

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b, &obj); err != nil || len(obj) == 0 {
			return Empty{}
		}

		days := make(map[string]json.RawMessage)
		numbered := false
		for k, v := range obj {
			if isDayKey(k) {
				days[k] = v
				if _, ok := dayNumber(k); ok {
					numbered = true
				}
			}
		}
		if numbered {
			return DayKeyed{Days: days}
		}

		for _, key := range wrapperKeys {
			if inner, ok := obj[key]; ok {
				return Wrapped{Inner: classify(inner, depth+1)}
			}
		}

		for _, key := range recordKeys {
			if _, ok := obj[key]; ok {
				return Single{Record: b}
			}
		}
	}

	return Empty{}
}

// isDayKey reports whether k looks like "day<something>". An object is day-keyed only
// when one such key carries a day number; the others ("dayX") are then skipped on their own.
func isDayKey(k string) bool {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.HasPrefix(k, "day") && len(k) > len("day") && k != "days"
}
