// Package storage defines the store contracts the ledgers run against.
//
// The unit of atomicity is one event: Update runs its callback with
// exclusive access to a single event's records and commits or discards the
// callback's writes as a whole. Implementations must guarantee that
// readers never observe a partially applied update.
package storage

import (
	"context"
	"errors"

	"github.com/planora/eventledger/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnavailable is returned when the backing store cannot be reached or a
// transaction cannot be started or committed. Callers may retry.
var ErrUnavailable = errors.New("storage unavailable")

// ErrConflict is returned when a transaction was aborted due to contention
// with a concurrent transaction. Callers may retry.
var ErrConflict = errors.New("transaction conflict")

// RosterTx is the transactional view of one event's roster, valid only
// inside the callback passed to RosterStore.Update.
type RosterTx interface {
	// Size returns the current number of attendees.
	Size() (int, error)
	// Contains reports whether the user is on the roster.
	Contains(userID string) (bool, error)
	// Insert adds an attendance record.
	Insert(att model.Attendance) error
	// Remove deletes the user's attendance record, reporting whether a
	// record existed.
	Remove(userID string) (bool, error)
}

// RosterStore persists attendance records with per-event atomicity.
type RosterStore interface {
	// Update runs fn with exclusive access to the event's roster. All
	// writes made through the view are committed atomically when fn
	// returns nil; any error from fn discards them and is returned
	// unchanged.
	Update(ctx context.Context, eventID string, fn func(tx RosterTx) error) error
	// Attendees returns the event's roster ordered by registration time
	// ascending.
	Attendees(ctx context.Context, eventID string) ([]model.Attendance, error)
	// IsRegistered reports whether the user is on the event's roster.
	IsRegistered(ctx context.Context, eventID, userID string) (bool, error)
}

// ExpenseTx is the transactional view of one event's expense set, valid
// only inside the callback passed to ExpenseStore.Update.
type ExpenseTx interface {
	// Get returns the expense with the given id, reporting whether it
	// exists within this event's set.
	Get(expenseID string) (model.Expense, bool, error)
	// Insert adds a new expense.
	Insert(exp model.Expense) error
	// Save overwrites an existing expense.
	Save(exp model.Expense) error
	// Delete removes the expense, reporting whether it existed.
	Delete(expenseID string) (bool, error)
	// List returns the event's expenses ordered by recording time, newest
	// first.
	List() ([]model.Expense, error)
}

// ExpenseStore persists expense records with per-event atomicity.
type ExpenseStore interface {
	// Update runs fn with exclusive access to the event's expense set,
	// with the same commit/discard semantics as RosterStore.Update.
	Update(ctx context.Context, eventID string, fn func(tx ExpenseTx) error) error
	// List returns the event's expenses ordered by recording time, newest
	// first.
	List(ctx context.Context, eventID string) ([]model.Expense, error)
	// ListByVendor returns a vendor's expenses across all events, newest
	// first.
	ListByVendor(ctx context.Context, vendorID string) ([]model.Expense, error)
	// EventOf resolves the event an expense belongs to, or ErrNotFound.
	EventOf(ctx context.Context, expenseID string) (string, error)
}
