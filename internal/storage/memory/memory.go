// Package memory implements the storage contracts in process memory.
//
// Each event's records are guarded by their own mutex, so operations on
// different events never contend. Update callbacks run against a staged
// copy that replaces the live records only when the callback succeeds,
// giving the same all-or-nothing semantics as a database transaction.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/planora/eventledger/internal/model"
	"github.com/planora/eventledger/internal/storage"
)

// Store holds rosters and expense sets for any number of events. It
// implements both storage.RosterStore and storage.ExpenseStore.
type Store struct {
	mu     sync.Mutex // guards events and owners
	events map[string]*eventState
	owners map[string]string // expense id -> event id
}

type eventState struct {
	mu        sync.Mutex
	attendees []model.Attendance
	expenses  []model.Expense
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		events: make(map[string]*eventState),
		owners: make(map[string]string),
	}
}

// state returns the per-event state, creating it on first use.
func (s *Store) state(eventID string) *eventState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.events[eventID]
	if !ok {
		st = &eventState{}
		s.events[eventID] = st
	}
	return st
}

// ─── RosterStore ──────────────────────────────────────────────────────────────

// Update runs fn against a staged copy of the event's roster.
func (s *Store) Update(ctx context.Context, eventID string, fn func(tx storage.RosterTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st := s.state(eventID)
	st.mu.Lock()
	defer st.mu.Unlock()

	tx := &rosterTx{attendees: slices.Clone(st.attendees)}
	if err := fn(tx); err != nil {
		return err
	}
	st.attendees = tx.attendees
	return nil
}

// Attendees returns a copy of the event's roster.
func (s *Store) Attendees(ctx context.Context, eventID string) ([]model.Attendance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := s.state(eventID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return slices.Clone(st.attendees), nil
}

// IsRegistered reports roster membership.
func (s *Store) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	st := s.state(eventID)
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, att := range st.attendees {
		if att.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type rosterTx struct {
	attendees []model.Attendance
}

func (tx *rosterTx) Size() (int, error) {
	return len(tx.attendees), nil
}

func (tx *rosterTx) Contains(userID string) (bool, error) {
	for _, att := range tx.attendees {
		if att.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (tx *rosterTx) Insert(att model.Attendance) error {
	tx.attendees = append(tx.attendees, att)
	return nil
}

func (tx *rosterTx) Remove(userID string) (bool, error) {
	for i, att := range tx.attendees {
		if att.UserID == userID {
			tx.attendees = slices.Delete(tx.attendees, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

// ─── ExpenseStore ─────────────────────────────────────────────────────────────

func (s *Store) updateExpenses(ctx context.Context, eventID string, fn func(tx storage.ExpenseTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st := s.state(eventID)
	st.mu.Lock()
	defer st.mu.Unlock()

	tx := &expenseTx{expenses: slices.Clone(st.expenses)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	for _, exp := range st.expenses {
		delete(s.owners, exp.ID)
	}
	for _, exp := range tx.expenses {
		s.owners[exp.ID] = eventID
	}
	s.mu.Unlock()

	st.expenses = tx.expenses
	return nil
}

func (s *Store) listExpenses(ctx context.Context, eventID string) ([]model.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := s.state(eventID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return sortNewestFirst(st.expenses), nil
}

// sortNewestFirst returns a copy ordered by recording time descending.
// Insertion order cannot be trusted as a proxy: records carry timestamps
// stamped by the caller, not by this store.
func sortNewestFirst(expenses []model.Expense) []model.Expense {
	out := slices.Clone(expenses)
	slices.SortStableFunc(out, func(a, b model.Expense) int {
		return b.RecordedAt.Compare(a.RecordedAt)
	})
	return out
}

func (s *Store) listByVendor(ctx context.Context, vendorID string) ([]model.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	states := make([]*eventState, 0, len(s.events))
	for _, st := range s.events {
		states = append(states, st)
	}
	s.mu.Unlock()

	var out []model.Expense
	for _, st := range states {
		st.mu.Lock()
		for _, exp := range st.expenses {
			if exp.VendorID == vendorID {
				out = append(out, exp)
			}
		}
		st.mu.Unlock()
	}
	slices.SortStableFunc(out, func(a, b model.Expense) int {
		return b.RecordedAt.Compare(a.RecordedAt)
	})
	return out, nil
}

func (s *Store) eventOf(ctx context.Context, expenseID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	eventID, ok := s.owners[expenseID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return eventID, nil
}

type expenseTx struct {
	expenses []model.Expense
}

func (tx *expenseTx) Get(expenseID string) (model.Expense, bool, error) {
	for _, exp := range tx.expenses {
		if exp.ID == expenseID {
			return exp, true, nil
		}
	}
	return model.Expense{}, false, nil
}

func (tx *expenseTx) Insert(exp model.Expense) error {
	tx.expenses = append(tx.expenses, exp)
	return nil
}

func (tx *expenseTx) Save(exp model.Expense) error {
	for i, e := range tx.expenses {
		if e.ID == exp.ID {
			tx.expenses[i] = exp
			return nil
		}
	}
	return storage.ErrNotFound
}

func (tx *expenseTx) Delete(expenseID string) (bool, error) {
	for i, e := range tx.expenses {
		if e.ID == expenseID {
			tx.expenses = slices.Delete(tx.expenses, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

func (tx *expenseTx) List() ([]model.Expense, error) {
	return sortNewestFirst(tx.expenses), nil
}

// ─── Expense store view ───────────────────────────────────────────────────────

// expenseStore adapts Store to storage.ExpenseStore. Both store interfaces
// name their mutator Update, so the expense half is exposed through a
// separate view type.
type expenseStore struct {
	s *Store
}

// Expenses returns the store's storage.ExpenseStore view.
func (s *Store) Expenses() storage.ExpenseStore {
	return expenseStore{s: s}
}

func (v expenseStore) Update(ctx context.Context, eventID string, fn func(tx storage.ExpenseTx) error) error {
	return v.s.updateExpenses(ctx, eventID, fn)
}

func (v expenseStore) List(ctx context.Context, eventID string) ([]model.Expense, error) {
	return v.s.listExpenses(ctx, eventID)
}

func (v expenseStore) ListByVendor(ctx context.Context, vendorID string) ([]model.Expense, error) {
	return v.s.listByVendor(ctx, vendorID)
}

func (v expenseStore) EventOf(ctx context.Context, expenseID string) (string, error) {
	return v.s.eventOf(ctx, expenseID)
}
