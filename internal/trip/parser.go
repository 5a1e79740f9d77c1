package trip

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedTripData is matched by every error Parse returns.
var ErrMalformedTripData = errors.New("malformed trip data")

// Persisted field names used to tag MalformedError.
const (
	FieldSelections = "selections"
	FieldAiPlan     = "ai_plan"
)

// maxEncodingDepth bounds how many times a field may be string-encoded.
const maxEncodingDepth = 3

// MalformedError reports which persisted field could not be decoded.
// errors.Is(err, ErrMalformedTripData) holds for every MalformedError.
type MalformedError struct {
	Field string
	Err   error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed trip data in %s: %v", e.Field, e.Err)
}

func (e *MalformedError) Unwrap() []error {
	return []error{ErrMalformedTripData, e.Err}
}

var (
	errMissing   = errors.New("value is missing")
	errNotObject = errors.New("expected a JSON object or a string encoding one")
)

// Parse decodes a persisted trip. Selections is required; AiPlan is optional and, when
// absent, is looked up under a "tripPlan" key inside the selections blob. The result
// does not depend on whether either field was stored as an object or as a string.
func Parse(raw RawRecord) (*Record, error) {
	var sel Selections
	if err := decodeField(FieldSelections, raw.Selections, &sel); err != nil {
		return nil, err
	}
	sel.Destination.Coordinates = point(sel.Destination.Coordinates)
	if sel.Origin != nil {
		sel.Origin.Coordinates = point(sel.Origin.Coordinates)
	}

	planRaw := raw.AiPlan
	if isAbsent(planRaw) {
		planRaw = nestedPlan(raw.Selections)
	}

	var plan *Plan
	if !isAbsent(planRaw) {
		plan = &Plan{}
		if err := decodeField(FieldAiPlan, planRaw, plan); err != nil {
			return nil, err
		}
	}

	status := raw.Status
	if status == "" {
		status = StatusPlanned
	}

	return &Record{
		ID:         raw.ID,
		OwnerEmail: raw.OwnerEmail,
		Selections: sel,
		AiPlan:     plan,
		Status:     status,
		CreatedAt:  raw.CreatedAt,
	}, nil
}

// DecodePlan decodes a generated plan on its own.
func DecodePlan(raw json.RawMessage) (*Plan, error) {
	var plan Plan
	if err := decodeField(FieldAiPlan, raw, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// decodeField decodes a field that holds an object either directly or string-encoded.
func decodeField(field string, raw json.RawMessage, dst any) error {
	b, err := unwrapObject(raw)
	if err != nil {
		return &MalformedError{Field: field, Err: err}
	}

	if err := json.Unmarshal(b, dst); err != nil {
		return &MalformedError{Field: field, Err: err}
	}
	return nil
}

// unwrapObject returns the JSON object held by raw, decoding string layers on the way.
func unwrapObject(raw json.RawMessage) ([]byte, error) {
	b := bytes.TrimSpace(raw)
	for depth := 0; ; depth++ {
		if isAbsent(b) {
			return nil, errMissing
		}

		switch b[0] {
		case '{':
			return b, nil
		case '"':
			if depth == maxEncodingDepth {
				return nil, errNotObject
			}
			var s string
			if err := json.Unmarshal(b, &s); err != nil {
				return nil, fmt.Errorf("decoding encoded value: %w", err)
			}
			b = bytes.TrimSpace([]byte(s))
		default:
			return nil, errNotObject
		}
	}
}

func nestedPlan(selections json.RawMessage) json.RawMessage {
	b, err := unwrapObject(selections)
	if err != nil {
		return nil
	}

	var holder struct {
		TripPlan json.RawMessage `json:"tripPlan"`
	}
	if err := json.Unmarshal(b, &holder); err != nil {
		return nil
	}
	return holder.TripPlan
}
