// Package ledger implements the registration and budget reconciliation
// engine: capacity-bounded attendee rosters and per-event expense ledgers
// with a derived budget snapshot.
//
// The ledgers are storage-agnostic. They define the exact sequence of
// checks and the exact outputs; atomicity comes from the storage contract,
// which scopes every mutation to a single event.
package ledger

import (
	"context"
	"time"

	"github.com/planora/eventledger/internal/model"
	"github.com/planora/eventledger/internal/storage"
)

// RegistrationLedger guards the capacity and uniqueness invariants of each
// event's attendee roster.
//
// Concurrent registrations near the capacity boundary are serialised by
// the store's per-event update scope, so two callers can never both take
// the last remaining slot:
//
//	caller A: read size 9 of 10 → insert → commit (size 10)
//	caller B: blocked until A commits → reads size 10 → CapacityExceeded
//
// Without that scope both callers would read size 9 and both would insert,
// overbooking the event.
type RegistrationLedger struct {
	store storage.RosterStore
	now   func() time.Time
}

// NewRegistrationLedger constructs a RegistrationLedger over the given
// store.
func NewRegistrationLedger(store storage.RosterStore) *RegistrationLedger {
	return &RegistrationLedger{store: store, now: time.Now}
}

// Register adds userID to the event's roster. The capacity is supplied by
// the caller, which resolved it from the event record; the engine never
// reads event rows itself.
//
// The duplicate check, capacity guard, and insert run inside one atomic
// update scope. On success the result carries the new roster size.
func (l *RegistrationLedger) Register(ctx context.Context, eventID string, capacity int, userID string) (model.RegistrationResult, error) {
	var res model.RegistrationResult
	err := l.store.Update(ctx, eventID, func(tx storage.RosterTx) error {
		registered, err := tx.Contains(userID)
		if err != nil {
			return err
		}
		if registered {
			return ErrAlreadyRegistered
		}

		size, err := tx.Size()
		if err != nil {
			return err
		}
		if size >= capacity {
			return ErrCapacityExceeded
		}

		att := model.Attendance{
			EventID:      eventID,
			UserID:       userID,
			RegisteredAt: l.now().UTC(),
		}
		if err := tx.Insert(att); err != nil {
			return err
		}

		res = model.RegistrationResult{
			EventID:      eventID,
			UserID:       userID,
			RosterSize:   size + 1,
			RegisteredAt: att.RegisteredAt,
		}
		return nil
	})
	return res, err
}

// Unregister removes userID from the event's roster. If the user was never
// registered it returns ErrNotRegistered and leaves the roster untouched;
// repeating the call is safe.
func (l *RegistrationLedger) Unregister(ctx context.Context, eventID, userID string) (model.RegistrationResult, error) {
	var res model.RegistrationResult
	err := l.store.Update(ctx, eventID, func(tx storage.RosterTx) error {
		removed, err := tx.Remove(userID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrNotRegistered
		}

		size, err := tx.Size()
		if err != nil {
			return err
		}
		res = model.RegistrationResult{
			EventID:    eventID,
			UserID:     userID,
			RosterSize: size,
		}
		return nil
	})
	return res, err
}

// Attendees returns the event's roster ordered by registration time
// ascending.
func (l *RegistrationLedger) Attendees(ctx context.Context, eventID string) ([]model.Attendance, error) {
	return l.store.Attendees(ctx, eventID)
}

// IsRegistered reports whether userID is on the event's roster.
func (l *RegistrationLedger) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	return l.store.IsRegistered(ctx, eventID, userID)
}
