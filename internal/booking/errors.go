package booking

import (
	"errors"
	"fmt"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrProfileNotFound = errors.New("availability profile not found")
	ErrProfileExists   = errors.New("availability profile already exists")
	// ErrDuplicateSlot is returned when the partial unique index on
	// (provider_id, requested_date, requested_time) rejects an insert.
	ErrDuplicateSlot = errors.New("provider already has an active booking at this slot")
)

// ValidationError is a client input failure: the request is malformed
// or out of policy and should be corrected, never retried as-is.
// Reason is one of the Reason* constants.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func validationErr(reason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ConflictError is a domain-level conflict: the transition is not legal
// from the current state, the caller is not permitted to perform it, or
// a concurrent write won the race. The client should re-fetch and decide.
type ConflictError struct {
	Guard   string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Guard, e.Message)
}

func conflictErr(guard, format string, args ...any) *ConflictError {
	return &ConflictError{Guard: guard, Message: fmt.Sprintf(format, args...)}
}
