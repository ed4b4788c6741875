package extract

import (
	"errors"
	"fmt"
)

// Sentinel errors for table-level failures. Each one skips the table;
// sibling tables in the document are still processed.
var (
	// ErrNoTableFound indicates the markup holds no table element
	ErrNoTableFound = errors.New("no table found")
	// ErrMissingTable indicates the payload has no "table" field
	ErrMissingTable = errors.New("missing table payload")
	// ErrMissingCaption indicates the payload has no "caption" field
	ErrMissingCaption = errors.New("missing caption")
	// ErrMalformedHeader indicates an unusable grouping row
	ErrMalformedHeader = errors.New("malformed header")
	// ErrInsufficientRows indicates a hierarchical table with fewer than three rows
	ErrInsufficientRows = errors.New("insufficient rows")
	// ErrRowWidthMismatch indicates a data row whose width differs from the sub-header row
	ErrRowWidthMismatch = errors.New("row width mismatch")
)

// MalformedHeaderError describes why a grouping row could not be resolved
type MalformedHeaderError struct {
	Column int // 0-based cell index, -1 when the row as a whole is unusable
	Reason string
	Err    error
}

func (e *MalformedHeaderError) Error() string {
	if e.Column >= 0 {
		return fmt.Sprintf("malformed header at cell %d: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("malformed header: %s", e.Reason)
}

func (e *MalformedHeaderError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedHeader, e.Err}
	}
	return []error{ErrMalformedHeader}
}

// RowWidthMismatchError reports a data row skipped for having the wrong width
type RowWidthMismatchError struct {
	Row  int // 1-based row number within the table
	Got  int
	Want int
}

func (e *RowWidthMismatchError) Error() string {
	return fmt.Sprintf("row %d has %d cells, header has %d", e.Row, e.Got, e.Want)
}

func (e *RowWidthMismatchError) Unwrap() error {
	return ErrRowWidthMismatch
}

// InsufficientRowsError reports a hierarchical table that is too short
type InsufficientRowsError struct {
	Got  int
	Want int
}

func (e *InsufficientRowsError) Error() string {
	return fmt.Sprintf("table has %d rows, need at least %d", e.Got, e.Want)
}

func (e *InsufficientRowsError) Unwrap() error {
	return ErrInsufficientRows
}
