package transform

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// toString follows JavaScript String() for scalars and arrays. Objects
// coerce to their compact JSON text.
func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatNumber(v)
	case []any:
		parts := make([]string, len(v))
		for i, element := range v {
			if element == nil {
				continue
			}
			parts[i] = toString(element)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "[object Object]"
		}
		return string(encoded)
	default:
		return cast.ToString(v)
	}
}

func formatNumber(number float64) string {
	switch {
	case math.IsNaN(number):
		return "NaN"
	case math.IsInf(number, 1):
		return "Infinity"
	case math.IsInf(number, -1):
		return "-Infinity"
	case math.Abs(number) >= 1e21:
		return strconv.FormatFloat(number, 'g', -1, 64)
	default:
		return cast.ToString(number)
	}
}

// toNumber follows JavaScript Number(): unparseable input is NaN.
func toNumber(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case bool:
		if v {
			return 1
		}
		return 0
	case float64:
		return v
	case string:
		return parseNumber(v)
	case []any:
		switch len(v) {
		case 0:
			return 0
		case 1:
			return toNumber(v[0])
		default:
			return math.NaN()
		}
	case map[string]any:
		return math.NaN()
	default:
		number, err := cast.ToFloat64E(v)
		if err != nil {
			return math.NaN()
		}
		return number
	}
}

func parseNumber(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") {
		integer, err := strconv.ParseInt(lower, 0, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(integer)
	}

	switch trimmed {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.ContainsAny(lower, "in") {
		// ParseFloat accepts "inf" and "nan" spellings that Number() rejects.
		return math.NaN()
	}

	number, err := cast.ToFloat64E(trimmed)
	if err != nil {
		return math.NaN()
	}
	return number
}

// truthy follows JavaScript Boolean().
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	default:
		return true
	}
}

// Truthy exposes the boolean coercion used by the boolean transform so the
// condition gate interprets non-boolean results the same way.
func Truthy(value any) bool {
	return truthy(value)
}
