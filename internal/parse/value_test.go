package parse

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		expected float64
		isNaN    bool
	}{
		{name: "Number", input: 48.8566, expected: 48.8566},
		{name: "Numeric string", input: "2.3522", expected: 2.3522},
		{name: "Negative string", input: "-0.5", expected: -0.5},
		{name: "Padded string", input: "  43.6 ", expected: 43.6},
		{name: "Numeric prefix", input: "45.75N", expected: 45.75},
		{name: "Exponent", input: "1e2", expected: 100},
		{name: "JSON number", input: json.Number("12.5"), expected: 12.5},
		{name: "Lookup list", input: []any{"44.1", "0"}, expected: 44.1},
		{name: "Not a number", input: "not_a_number", isNaN: true},
		{name: "Empty string", input: "", isNaN: true},
		{name: "Empty list", input: []any{}, isNaN: true},
		{name: "Missing", input: nil, isNaN: true},
		{name: "Boolean", input: true, isNaN: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Float(tc.input)
			if tc.isNaN {
				assert.True(t, math.IsNaN(got), "expected NaN, got %v", got)
			} else {
				assert.InDelta(t, tc.expected, got, 1e-9)
			}
		})
	}
}

func TestNumber(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		expected float64
		ok       bool
	}{
		{name: "Positive", input: 3.0, expected: 3, ok: true},
		{name: "Negative", input: -2.0, expected: -2, ok: true},
		{name: "String", input: "-4", expected: -4, ok: true},
		{name: "Trailing text", input: "4 days", ok: false},
		{name: "Empty", input: "", ok: false},
		{name: "Blank", input: "   ", ok: false},
		{name: "Missing", input: nil, ok: false},
		{name: "NaN", input: math.NaN(), ok: false},
		{name: "Inf", input: "inf", ok: false},
		{name: "Infinity", input: "-Infinity", ok: false},
		{name: "Inf float", input: math.Inf(1), ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Number(tc.input)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.expected, got)
			}
		})
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "WO-12", Text("  WO-12 "))
	assert.Equal(t, "1042", Text(1042.0))
	assert.Equal(t, "10.5", Text(10.5))
	assert.Equal(t, "Ali Hamid", Text([]any{"Ali Hamid", "Samba TA"}))
	assert.Equal(t, "N/A", TextOr("  ", "N/A"))
	assert.Equal(t, "Store 4", TextOr("Store 4", "N/A"))
}

func TestFirst(t *testing.T) {
	assert.Equal(t, "Quentin Salat", First([]any{"Quentin Salat"}))
	assert.Equal(t, "", First([]any{}))
	assert.Equal(t, "Tanguy Volta", First([]string{"Tanguy Volta", "Maxime Volta"}))
	assert.Equal(t, "", First([]string{}))
	assert.Equal(t, "Chrys Nahayo", First("Chrys Nahayo"))
}

func TestDate(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	testCases := []struct {
		name     string
		input    any
		expected time.Time
		isNil    bool
	}{
		{name: "RFC3339 UTC", input: "2024-11-05T08:30:00.000Z", expected: time.Date(2024, 11, 5, 8, 30, 0, 0, time.UTC)},
		{name: "RFC3339 offset", input: "2024-11-05T08:30:00+01:00", expected: time.Date(2024, 11, 5, 7, 30, 0, 0, time.UTC)},
		{name: "Date only uses location", input: "2024-11-05", expected: time.Date(2024, 11, 5, 0, 0, 0, 0, paris)},
		{name: "Local timestamp", input: "2024-11-05 14:00", expected: time.Date(2024, 11, 5, 14, 0, 0, 0, paris)},
		{name: "US date", input: "11/5/2024", expected: time.Date(2024, 11, 5, 0, 0, 0, 0, paris)},
		{name: "Lookup list", input: []any{"2024-11-05"}, expected: time.Date(2024, 11, 5, 0, 0, 0, 0, paris)},
		{name: "Garbage", input: "next tuesday", isNil: true},
		{name: "Impossible date", input: "2024-02-31", isNil: true},
		{name: "Empty", input: "", isNil: true},
		{name: "Missing", input: nil, isNil: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Date(tc.input, paris)
			if tc.isNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tc.expected.Equal(*got), "expected %v, got %v", tc.expected, *got)
		})
	}
}
