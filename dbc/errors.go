package dbc

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMessageNotFound is returned when a message lookup by id or name fails.
	ErrMessageNotFound = errors.New("message not found")

	// ErrSignalNotFound is returned when a signal lookup by name fails.
	ErrSignalNotFound = errors.New("signal not found")
)

// MalformedFieldError is returned when a line starts with a known record
// keyword but one of its fields is missing, empty, unparsable, or a
// mandatory delimiter doesn't match.
type MalformedFieldError struct {
	Record string // record keyword, e.g. "SG_"
	Line   int

	// Field is set when a named field is absent or can't be converted.
	Field string

	// Expected and Found are set when a delimiter or token doesn't match.
	Expected string
	Found    string

	// Err holds the numeric conversion error, if any.
	Err error
}

func (e *MalformedFieldError) Error() string {
	prefix := fmt.Sprintf("%s line %d", e.Record, e.Line)
	switch {
	case e.Expected != "":
		return fmt.Sprintf("%s: expected '%s', found '%s'", prefix, e.Expected, e.Found)
	case e.Err != nil:
		return fmt.Sprintf("%s: field '%s': %v", prefix, e.Field, e.Err)
	default:
		return fmt.Sprintf("%s: field '%s' has no length", prefix, e.Field)
	}
}

func (e *MalformedFieldError) Unwrap() error {
	return e.Err
}

// OutOfContextError is returned when a record appears before any message
// record, or references a message or signal that hasn't been declared.
type OutOfContextError struct {
	Record string
	Line   int
	Reason string
}

func (e *OutOfContextError) Error() string {
	return fmt.Sprintf("%s line %d: %s", e.Record, e.Line, e.Reason)
}

func missingField(record string, line int, field string) error {
	return &MalformedFieldError{Record: record, Line: line, Field: field}
}

func unexpected(record string, line int, expected string, s string, pos int) error {
	found := "end of line"
	if pos < len(s) {
		found = string(s[pos])
	}
	return &MalformedFieldError{Record: record, Line: line, Expected: expected, Found: found}
}

func badNumeral(record string, line int, field string, err error) error {
	return &MalformedFieldError{Record: record, Line: line, Field: field, Err: err}
}
