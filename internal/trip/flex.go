package trip

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	jsonNull     = []byte("null")
	numberRegexp = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	coordRegexp  = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*°?\s*([NSEWnsew])?`)
)

// isAbsent reports whether raw carries no value at all.
func isAbsent(raw []byte) bool {
	b := bytes.TrimSpace(raw)
	return len(b) == 0 || bytes.Equal(b, jsonNull)
}

// Text is a free-form string the model sometimes emits as a number, bool or object.
// Non-string values are kept in their JSON text form instead of failing the decode.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if isAbsent(b) {
		*t = ""
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decoding text: %w", err)
		}
		*t = Text(s)
	case '{', '[':
		var compact bytes.Buffer
		if err := json.Compact(&compact, b); err != nil {
			return fmt.Errorf("decoding text: %w", err)
		}
		*t = Text(compact.String())
	default:
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("decoding text: %w", err)
		}
		switch x := v.(type) {
		case float64:
			*t = Text(strconv.FormatFloat(x, 'f', -1, 64))
		default:
			*t = Text(fmt.Sprint(x))
		}
	}

	return nil
}

// String returns the text as a plain string.
func (t Text) String() string { return string(t) }

// Number is a numeric value that may arrive as a JSON number or as text such as "4.5 stars".
// Text without a number decodes to zero.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if isAbsent(b) {
		*n = 0
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decoding number: %w", err)
		}
		*n = Number(leadingFloat(s))
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// Int returns the value truncated to an int.
func (n Number) Int() int { return int(n) }

func leadingFloat(s string) float64 {
	m := numberRegexp.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

// GeoPoint is a latitude/longitude pair. It decodes {lat,lng}, {latitude,longitude},
// [lat,lng] and "lat, lng"; anything else decodes to the zero point.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether the point carries no coordinates.
func (g *GeoPoint) IsZero() bool {
	return g == nil || (g.Lat == 0 && g.Lng == 0)
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *GeoPoint) UnmarshalJSON(b []byte) error {
	*g = GeoPoint{}
	b = bytes.TrimSpace(b)
	if isAbsent(b) {
		return nil
	}

	switch b[0] {
	case '{':
		var obj struct {
			Lat       *Number `json:"lat"`
			Lng       *Number `json:"lng"`
			Lon       *Number `json:"lon"`
			Latitude  *Number `json:"latitude"`
			Longitude *Number `json:"longitude"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return nil
		}
		g.Lat = float64(firstNumber(obj.Lat, obj.Latitude))
		g.Lng = float64(firstNumber(obj.Lng, obj.Lon, obj.Longitude))
	case '[':
		var pair []Number
		if err := json.Unmarshal(b, &pair); err != nil || len(pair) < 2 {
			return nil
		}
		g.Lat, g.Lng = float64(pair[0]), float64(pair[1])
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		ms := coordRegexp.FindAllStringSubmatch(s, 2)
		if len(ms) < 2 {
			return nil
		}
		g.Lat, g.Lng = hemisphere(ms[0]), hemisphere(ms[1])
	}

	return nil
}

// hemisphere applies a trailing S or W as a negative sign, as in "33.86° S".
func hemisphere(m []string) float64 {
	f, _ := strconv.ParseFloat(m[1], 64)
	switch strings.ToUpper(m[2]) {
	case "S", "W":
		return -math.Abs(f)
	}
	return f
}

func firstNumber(candidates ...*Number) Number {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return 0
}

// point drops zero points so that unparseable coordinates are omitted from output.
func point(g *GeoPoint) *GeoPoint {
	if g.IsZero() {
		return nil
	}
	return g
}
