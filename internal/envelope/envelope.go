// Package envelope unwraps responses of the Ratio1 REST plugins. Responses
// either carry the payload under a "result" field or are the bare payload.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned when a response body is not JSON.
var ErrMalformed = errors.New("envelope: malformed response")

var null = []byte("null")

// Extract returns the raw JSON payload of body, looking inside "result"
// when present. Empty bodies yield nil.
func Extract(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: %.64q", ErrMalformed, trimmed)
	}
	if trimmed[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &env); err == nil {
			if result, ok := env["result"]; ok {
				return result, nil
			}
		}
	}
	return trimmed, nil
}

// Slot interprets body as one slot value. Missing, empty and null payloads
// read as "". String payloads are returned unquoted exactly once, so slot
// content that itself looks like JSON is preserved. Any other JSON payload is
// returned as its compact JSON text.
func Slot(body []byte) (string, error) {
	payload, err := Extract(body)
	if err != nil {
		return "", err
	}
	return Value(payload)
}

// SlotMap interprets body as a field -> slot value object, as returned for
// hash keys. A null payload yields a nil map.
func SlotMap(body []byte) (map[string]string, error) {
	payload, err := Extract(body)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 || bytes.Equal(payload, null) {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: hash payload: %v", ErrMalformed, err)
	}
	out := make(map[string]string, len(fields))
	for field, raw := range fields {
		v, err := Value(raw)
		if err != nil {
			return nil, fmt.Errorf("envelope: field %q: %w", field, err)
		}
		out[field] = v
	}
	return out, nil
}

// Decode unmarshals the payload of body into out. Empty bodies decode as null.
func Decode(body []byte, out any) error {
	payload, err := Extract(body)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		payload = null
	}
	return json.Unmarshal(payload, out)
}

// Value converts one JSON value into a slot string: null reads as "", a
// string is unquoted and anything else is kept as compact JSON.
func Value(payload []byte) (string, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, null) {
		return "", nil
	}
	if payload[0] == '"' {
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return s, nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return compact.String(), nil
}
