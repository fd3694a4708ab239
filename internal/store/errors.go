package store

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when a bounded reconnect loop gives up.
	// With the default unbounded policy callers never see it.
	ErrUnavailable = errors.New("store unavailable")

	// ErrClosed is returned for calls made after Close.
	ErrClosed = errors.New("store gateway closed")

	// ErrUnsupported is returned when a statement has no rendition for the
	// session's dialect.
	ErrUnsupported = errors.New("statement not supported by dialect")
)

// StatementError reports which statement failed. It unwraps to the driver
// error so callers can still match driver-specific failures.
type StatementError struct {
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Statement, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }
