package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"

	"budget-analyzer/internal/budget"
)

var errNotObject = errors.New("response is not a JSON object")

// DecodePayload parses an analyzer response body. Strict JSON is tried first,
// then a repaired version (fences, trailing commas, unclosed objects), then
// Hjson as the most lenient reading.
func DecodePayload(body []byte) (budget.Payload, error) {
	text := stripCodeFence(strings.TrimSpace(string(body)))
	if text == "" {
		return nil, &UpstreamError{Message: "empty response"}
	}

	if p, err := decodeStrict([]byte(text)); err == nil {
		return p, nil
	}
	if repaired, err := jsonrepair.RepairJSON(text); err == nil {
		if p, err := decodeStrict([]byte(repaired)); err == nil {
			return p, nil
		}
	}
	var loose map[string]any
	if err := hjson.Unmarshal([]byte(text), &loose); err == nil && len(loose) > 0 {
		// Round-trip so numbers decode as float64 like the strict path.
		data, err := json.Marshal(loose)
		if err == nil {
			if p, err := decodeStrict(data); err == nil {
				return p, nil
			}
		}
	}
	return nil, &UpstreamError{Message: "unparseable response"}
}

// stripCodeFence removes a surrounding ```json ... ``` block.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func decodeStrict(data []byte) (budget.Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return budget.Payload(obj), nil
}

// checkEnvelope turns a {"success": false, "error": ...} body into an error.
func checkEnvelope(p budget.Payload) error {
	success, ok := p["success"].(bool)
	if !ok || success {
		return nil
	}
	msg := envelopeMessage(p)
	if msg == "" {
		msg = "analysis failed"
	}
	return &UpstreamError{Message: msg}
}

func envelopeMessage(p budget.Payload) string {
	switch e := p["error"].(type) {
	case string:
		if e != "" {
			return e
		}
	case map[string]any:
		if m, ok := e["message"].(string); ok && m != "" {
			return m
		}
	}
	if m, ok := p["message"].(string); ok {
		return m
	}
	return ""
}
