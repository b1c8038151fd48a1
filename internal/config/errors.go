package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfig is the sentinel behind every configuration error. Use
// errors.Is(err, ErrConfig) to map a failure to the "bad invocation" exit code.
var ErrConfig = errors.New("configuration error")

// Error is a fatal configuration problem: a bad flag combination, a malformed
// override document, an unknown dtype.
type Error struct {
	// Field names the offending flag, document or document key.
	Field string
	Msg   string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// Unwrap makes errors.Is(err, ErrConfig) true.
func (e *Error) Unwrap() error { return ErrConfig }

// Errorf builds a *Error for field.
func Errorf(field, format string, args ...any) error {
	return &Error{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// FirstError converts the first error-severity issue into a *Error, or
// returns nil when there are only warnings.
func FirstError(issues []Issue) error {
	var msgs []string
	var field string
	for _, is := range issues {
		if is.Severity != SeverityError {
			continue
		}
		if field == "" {
			field = is.Path
		}
		msgs = append(msgs, is.Path+": "+is.Message)
	}
	if len(msgs) == 0 {
		return nil
	}
	if len(msgs) == 1 {
		return &Error{Field: field, Msg: strings.TrimPrefix(msgs[0], field+": ")}
	}
	return &Error{Msg: "invalid settings: " + strings.Join(msgs, "; ")}
}
