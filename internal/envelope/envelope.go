// Package envelope decodes the response bodies returned by the remote
// serverless functions.
//
// Some deployments return the real payload directly; others wrap it in an
// outer JSON object of the form {"statusCode": 200, "body": "..."} where the
// body field is itself a JSON-encoded string. [Unwrap] removes exactly one
// level of that wrapping, and [Field] extracts a named value from the
// resulting payload with a defined fallback order. Keeping this in one place
// avoids repeating the same conditional branching at every endpoint.
package envelope

import (
	"encoding/json"
	"strconv"
)

// wrapper is the outer envelope shape. Body is decoded lazily because it is
// a string containing JSON, not a nested object.
type wrapper struct {
	StatusCode *int            `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
}

// Unwrap removes one level of envelope wrapping if present.
//
// If body parses as an object carrying a numeric statusCode and a string
// body field, the inner string's bytes are returned. In every other case
// (malformed JSON, missing fields, body that is not a string) the input is
// returned unchanged so callers can treat the top-level response as the
// payload.
func Unwrap(body []byte) []byte {
	var w wrapper
	if err := json.Unmarshal(body, &w); err != nil {
		return body
	}
	if w.StatusCode == nil || len(w.Body) == 0 {
		return body
	}

	var inner string
	if err := json.Unmarshal(w.Body, &inner); err != nil {
		// body present but not a string-encoded payload
		return body
	}
	return []byte(inner)
}

// Field parses payload as a JSON object and returns the value of the first
// key present, coerced to a string. Keys are tried in order, giving callers
// a defined fallback priority (e.g. "response", then "message", then "body").
//
// The second return value is false when the payload is not a JSON object or
// none of the keys hold a representable value.
func Field(payload []byte, keys ...string) (string, bool) {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return "", false
	}

	for _, key := range keys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		if s, ok := coerce(v); ok {
			return s, true
		}
	}
	return "", false
}

// coerce converts a decoded JSON value to its string form.
func coerce(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}
