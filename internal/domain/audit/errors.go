package audit

import "errors"

var (
	// ErrSessionNotFound is returned when an audit session does not exist.
	ErrSessionNotFound = errors.New("audit session not found")
	// ErrSessionCompleted is returned when advancing a session that already
	// finished. Nothing is re-executed.
	ErrSessionCompleted = errors.New("audit session already completed")
	// ErrInvalidStepSequence is returned when advancing a session whose
	// previous step did not complete. A failed session is never retried;
	// the operator starts a fresh one.
	ErrInvalidStepSequence = errors.New("invalid audit step sequence")
)
