package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pders01/blogify/internal/state"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// errorLines renders err for display. Store errors with field maps produce
// one line per field message.
func errorLines(err error) []string {
	if err == nil {
		return nil
	}
	var se *state.Error
	if errors.As(err, &se) {
		return se.Lines()
	}
	return []string{err.Error()}
}

func errorText(err error) string {
	return strings.Join(errorLines(err), "; ")
}
