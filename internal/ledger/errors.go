package ledger

import "errors"

// Business outcomes. These are expected results of well-formed calls, not
// faults; handlers dispatch on them with errors.Is to pick a status code.
var (
	// ErrAlreadyRegistered is returned when the user is already on the
	// event's roster.
	ErrAlreadyRegistered = errors.New("user already registered for this event")

	// ErrCapacityExceeded is returned when the event has no remaining
	// capacity.
	ErrCapacityExceeded = errors.New("event is at capacity")

	// ErrNotRegistered is returned by Unregister when the user was not on
	// the roster. The roster is left untouched, so callers wanting
	// idempotent semantics may treat it as success.
	ErrNotRegistered = errors.New("user is not registered for this event")

	// ErrInvalidAmount is returned when an expense amount is negative.
	ErrInvalidAmount = errors.New("expense amount must not be negative")

	// ErrExpenseNotFound is returned when the referenced expense does not
	// exist.
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrEventNotFound is returned by the Coordinator when the event id
	// cannot be resolved.
	ErrEventNotFound = errors.New("event not found")
)
