package claim

import "errors"

var (
	// ErrNotFound is returned when a claim does not exist.
	ErrNotFound = errors.New("claim not found")
	// ErrClosed is returned when an operation targets a closed claim.
	ErrClosed = errors.New("claim is closed")
)
