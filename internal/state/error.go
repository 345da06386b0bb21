package state

import (
	"errors"
	"strings"

	"github.com/pders01/blogify/internal/api"
)

type ErrorKind int

const (
	KindMessage ErrorKind = iota
	KindFields
)

// Error is what a failed operation leaves in its store: either a single
// message or the server's per-field messages. Values are never mutated after
// construction.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string][]string

	cause error
}

func MessageError(msg string) *Error {
	return &Error{Kind: KindMessage, Message: msg}
}

func FieldErrors(fields map[string][]string) *Error {
	return &Error{Kind: KindFields, Fields: copyFields(fields)}
}

// FromErr converts an operation failure. A structured server error map is
// kept as-is, anything else collapses to fallback.
func FromErr(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.HasFields() {
		e := FieldErrors(apiErr.Fields)
		e.cause = err
		return e
	}
	return &Error{Kind: KindMessage, Message: fallback, cause: err}
}

func (e *Error) Error() string {
	if e.Kind == KindFields {
		return strings.Join(e.Lines(), "; ")
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Lines renders the error for display, one entry per field message.
func (e *Error) Lines() []string {
	if e == nil {
		return nil
	}
	if e.Kind == KindFields {
		return api.FieldMessages(e.Fields)
	}
	return []string{e.Message}
}

func copyFields(fields map[string][]string) map[string][]string {
	if fields == nil {
		return nil
	}
	out := make(map[string][]string, len(fields))
	for k, v := range fields {
		out[k] = append([]string(nil), v...)
	}
	return out
}
