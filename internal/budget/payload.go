package budget

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Payload is a decoded upstream response. It is treated as read-only once received.
type Payload map[string]any

// DecodePayload parses a JSON object into a Payload, keeping numbers as float64.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Payload:
		return map[string]any(m), m != nil
	case map[string]any:
		return m, m != nil
	default:
		return nil, false
	}
}

// lookup walks nested objects by key. Missing keys and nulls report false.
func lookup(m map[string]any, path ...string) (any, bool) {
	if m == nil {
		return nil, false
	}
	var current any = m
	for _, key := range path {
		obj, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

func lookupMap(m map[string]any, path ...string) (map[string]any, bool) {
	v, ok := lookup(m, path...)
	if !ok {
		return nil, false
	}
	obj, ok := asMap(v)
	if !ok || len(obj) == 0 {
		return nil, false
	}
	return obj, true
}

// stringify renders scalar JSON values as text; objects and arrays yield "".
func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if n, ok := toNumber(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}
