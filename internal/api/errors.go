package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error is a non-2xx response. Fields holds the server's
// {"errors":{field:[messages]}} map when the body carried one.
type Error struct {
	Status int
	Fields map[string][]string
	Body   string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("HTTP error: %d", e.Status)
	}
	return fmt.Sprintf("HTTP error: %d: %s", e.Status, strings.Join(FieldMessages(e.Fields), "; "))
}

// HasFields reports whether the server sent a structured error map.
func (e *Error) HasFields() bool {
	return len(e.Fields) > 0
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// FieldMessages flattens a field error map into "field message" lines,
// sorted by field.
func FieldMessages(fields map[string][]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		for _, msg := range fields[k] {
			lines = append(lines, k+" "+msg)
		}
	}
	return lines
}

// decodeFieldErrors accepts both {"field":["a","b"]} and {"field":"a"}.
func decodeFieldErrors(body []byte) map[string][]string {
	var envelope struct {
		Errors map[string]json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Errors) == 0 {
		return nil
	}

	fields := make(map[string][]string, len(envelope.Errors))
	for field, raw := range envelope.Errors {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			fields[field] = list
			continue
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			fields[field] = []string{single}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
