package budget

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// amountPattern matches the first run of digits and separators, e.g. "12.345.678,5".
var amountPattern = regexp.MustCompile(`\d[\d.,]*`)

// ParseAmount extracts a number from free text written with Chilean separators:
// "." groups thousands and "," marks decimals. A run with more than one ","
// is read the other way round, so "12,345,678.5" is 12345678.5. Text without
// digits yields 0.
func ParseAmount(text string) float64 {
	n, _ := parseAmount(text)
	return n
}

func parseAmount(text string) (float64, bool) {
	match := amountPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	match = strings.TrimRight(match, ".,")
	var cleaned string
	if strings.Count(match, ",") > 1 {
		cleaned = strings.ReplaceAll(match, ",", "")
		if strings.Count(cleaned, ".") > 1 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	} else {
		cleaned = strings.ReplaceAll(match, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	if strings.HasPrefix(strings.TrimSpace(text), "-") {
		n = -n
	}
	return n, true
}

// toNumber coerces decoded JSON values into a float. Strings go through ParseAmount.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return toNumber(float64(n))
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		return parseAmount(n)
	default:
		return 0, false
	}
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
