package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySearch is returned for an Update whose search set is empty.
	// An empty predicate matches every row, so it is never executed.
	ErrEmptySearch = errors.New("update requires at least one search field")
	// ErrInvalidUserID is returned when a user id cannot key a ledger table.
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrConflict is returned when a ledger changed underneath a save.
	ErrConflict = errors.New("ledger modified concurrently")
	// ErrIntentParser wraps a failed or timed out intent parser call.
	ErrIntentParser = errors.New("intent parser failed")
)

// ParseError means the intent parser output could not be read as a record
// array or object. Raw carries the offending text so it can be shown back.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model output: %v (raw: %q)", e.Err, e.Raw)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a single bad field in a normalized command.
type ValidationError struct {
	Field  Field
	Value  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NoMatchError is the soft failure of an Update that matched no rows.
type NoMatchError struct {
	Search FieldValues
}

func (e *NoMatchError) Error() string {
	return "no record found matching " + e.Search.String()
}

// StorageError wraps a ledger read or write failure.
type StorageError struct {
	Op     string
	UserID string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s ledger for %q: %v", e.Op, e.UserID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
