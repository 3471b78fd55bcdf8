package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("invalid credentials")
	ErrNoRows       = errors.New("upload contains no usable rows")
	ErrUnreadable   = errors.New("upload could not be read")
)

// SchemaError reports that the upload header could not be mapped to all canonical fields.
type SchemaError struct {
	Found []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("could not resolve all columns, found: [%s]", strings.Join(e.Found, ", "))
}

// InsufficientHistoryError rejects a batch where a SKU has too few distinct sale days.
type InsufficientHistoryError struct {
	SKU      string
	Days     int
	Required int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("sku %q: not enough history (%d days, need >= %d)", e.SKU, e.Days, e.Required)
}

// DateParseError is raised under the strict date policy.
type DateParseError struct {
	Line  int
	Value string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("line %d: unrecognised date %q", e.Line, e.Value)
}

// RowError reports a malformed value in an upload row.
type RowError struct {
	Line   int
	Column string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: column %s value %q: %s", e.Line, e.Column, e.Value, e.Reason)
}

// IsValidation reports whether err should be surfaced to the caller as a bad request.
func IsValidation(err error) bool {
	var (
		schemaErr  *SchemaError
		historyErr *InsufficientHistoryError
		dateErr    *DateParseError
		rowErr     *RowError
	)
	return errors.As(err, &schemaErr) ||
		errors.As(err, &historyErr) ||
		errors.As(err, &dateErr) ||
		errors.As(err, &rowErr) ||
		errors.Is(err, ErrNoRows) ||
		errors.Is(err, ErrUnreadable)
}
