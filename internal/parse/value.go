package parse

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// floatPrefixRe matches the longest numeric prefix of a string, the way
// spreadsheet-style sources tend to be read ("48.85 N" -> 48.85).
var floatPrefixRe = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// dateLayouts are tried in order. Layouts without a zone are interpreted in the
// caller's location.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006",
}

// Float reads a coordinate-like value. Numbers are returned as-is, strings are
// parsed from their leading numeric prefix, a list yields its first element.
// Anything else is NaN.
func Float(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		m := floatPrefixRe.FindString(strings.TrimSpace(x))
		if m == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case []any:
		if len(x) == 0 {
			return math.NaN()
		}
		return Float(x[0])
	default:
		return math.NaN()
	}
}

// Number reads a strictly numeric value. Unlike Float, trailing garbage makes the
// whole value invalid, and so do NaN and the infinities.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, finite(x)
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil && finite(f)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !finite(f) {
			return 0, false
		}
		return f, true
	case []any:
		if len(x) == 0 {
			return 0, false
		}
		return Number(x[0])
	default:
		return 0, false
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Text renders a scalar as a trimmed string. Integral floats lose their ".0" so
// numeric identifiers read naturally. nil yields "".
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case []any:
		return First(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// First returns the text of v, or of its first element when v is a list.
// Lookup and linked-record fields arrive as lists.
func First(v any) string {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return ""
		}
		return Text(list[0])
	}
	if list, ok := v.([]string); ok {
		if len(list) == 0 {
			return ""
		}
		return strings.TrimSpace(list[0])
	}
	return Text(v)
}

// TextOr returns Text(v), or fallback when that is empty.
func TextOr(v any, fallback string) string {
	if s := Text(v); s != "" {
		return s
	}
	return fallback
}

// Date parses a date or timestamp. It returns nil when v is absent or does not
// parse with any known layout.
func Date(v any, loc *time.Location) *time.Time {
	s := First(v)
	if s == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return &t
		}
	}
	return nil
}
