package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/planora/eventledger/internal/model"
	"github.com/planora/eventledger/internal/storage"
)

// BudgetLedger maintains each event's expense set and derives its budget
// snapshot.
//
// The snapshot is a materialized view: every mutation recomputes it in
// full from the expense set inside the same atomic scope, and every read
// recomputes it again. Nothing ever patches a stored total, so interleaved
// adds, edits, and deletes from concurrent vendor sessions cannot lose
// updates.
type BudgetLedger struct {
	store storage.ExpenseStore
	now   func() time.Time
	newID func() string
}

// NewBudgetLedger constructs a BudgetLedger over the given store.
func NewBudgetLedger(store storage.ExpenseStore) *BudgetLedger {
	return &BudgetLedger{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// ComputeSnapshot derives the budget snapshot for an event from its full
// expense set. It is a pure function: same expenses in any order, same
// snapshot.
//
// The over-budget flag compares the true total against the true budget
// rather than checking the clamped remainder for zero, so an event that is
// 0.01 or 10000 past its budget is flagged either way.
func ComputeSnapshot(eventID string, budgetAmount decimal.Decimal, expenses []model.Expense) model.BudgetSnapshot {
	total := decimal.Zero
	for _, exp := range expenses {
		total = total.Add(exp.Amount)
	}

	remaining := budgetAmount.Sub(total)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return model.BudgetSnapshot{
		EventID:         eventID,
		BudgetAmount:    budgetAmount,
		TotalExpenses:   total,
		RemainingBudget: remaining,
		IsOverBudget:    total.GreaterThan(budgetAmount),
	}
}

// AddExpense records a new expense against the event and returns it along
// with the snapshot recomputed from the updated expense set.
func (l *BudgetLedger) AddExpense(ctx context.Context, eventID string, budgetAmount decimal.Decimal, in model.ExpenseInput) (model.Expense, model.BudgetSnapshot, error) {
	if in.Amount.IsNegative() {
		return model.Expense{}, model.BudgetSnapshot{}, ErrInvalidAmount
	}

	exp := model.Expense{
		ID:          l.newID(),
		EventID:     eventID,
		VendorID:    in.VendorID,
		Category:    in.Category,
		Amount:      in.Amount,
		Description: in.Description,
	}

	var snap model.BudgetSnapshot
	err := l.store.Update(ctx, eventID, func(tx storage.ExpenseTx) error {
		// Stamped inside the exclusive scope so recording times agree
		// with commit order under concurrent adds.
		exp.RecordedAt = l.now().UTC()
		if err := tx.Insert(exp); err != nil {
			return err
		}
		var err error
		snap, err = l.recompute(tx, eventID, budgetAmount)
		return err
	})
	if err != nil {
		return model.Expense{}, model.BudgetSnapshot{}, err
	}
	return exp, snap, nil
}

// UpdateExpense applies the non-nil fields to the expense and returns the
// updated record with the recomputed snapshot. The expense's existence is
// re-checked inside the atomic scope: it may have been deleted between the
// id lookup and the lock being taken.
func (l *BudgetLedger) UpdateExpense(ctx context.Context, expenseID string, budgetAmount decimal.Decimal, fields model.ExpenseUpdate) (model.Expense, model.BudgetSnapshot, error) {
	if fields.Amount != nil && fields.Amount.IsNegative() {
		return model.Expense{}, model.BudgetSnapshot{}, ErrInvalidAmount
	}

	eventID, err := l.EventOf(ctx, expenseID)
	if err != nil {
		return model.Expense{}, model.BudgetSnapshot{}, err
	}

	var (
		updated model.Expense
		snap    model.BudgetSnapshot
	)
	err = l.store.Update(ctx, eventID, func(tx storage.ExpenseTx) error {
		exp, ok, err := tx.Get(expenseID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrExpenseNotFound
		}

		if fields.Category != nil {
			exp.Category = *fields.Category
		}
		if fields.Amount != nil {
			exp.Amount = *fields.Amount
		}
		if fields.Description != nil {
			exp.Description = *fields.Description
		}
		if err := tx.Save(exp); err != nil {
			return err
		}

		updated = exp
		snap, err = l.recompute(tx, eventID, budgetAmount)
		return err
	})
	if err != nil {
		return model.Expense{}, model.BudgetSnapshot{}, err
	}
	return updated, snap, nil
}

// DeleteExpense removes the expense and returns the recomputed snapshot.
func (l *BudgetLedger) DeleteExpense(ctx context.Context, expenseID string, budgetAmount decimal.Decimal) (model.BudgetSnapshot, error) {
	eventID, err := l.EventOf(ctx, expenseID)
	if err != nil {
		return model.BudgetSnapshot{}, err
	}

	var snap model.BudgetSnapshot
	err = l.store.Update(ctx, eventID, func(tx storage.ExpenseTx) error {
		removed, err := tx.Delete(expenseID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrExpenseNotFound
		}
		snap, err = l.recompute(tx, eventID, budgetAmount)
		return err
	})
	if err != nil {
		return model.BudgetSnapshot{}, err
	}
	return snap, nil
}

// Snapshot recomputes the event's budget position from the current expense
// set. A stored snapshot is never trusted; this is always a fresh
// derivation.
func (l *BudgetLedger) Snapshot(ctx context.Context, eventID string, budgetAmount decimal.Decimal) (model.BudgetSnapshot, error) {
	expenses, err := l.store.List(ctx, eventID)
	if err != nil {
		return model.BudgetSnapshot{}, err
	}
	return ComputeSnapshot(eventID, budgetAmount, expenses), nil
}

// Expenses returns the event's expenses ordered by recording time, newest
// first.
func (l *BudgetLedger) Expenses(ctx context.Context, eventID string) ([]model.Expense, error) {
	return l.store.List(ctx, eventID)
}

// ExpensesByVendor returns a vendor's expenses across all events, newest
// first.
func (l *BudgetLedger) ExpensesByVendor(ctx context.Context, vendorID string) ([]model.Expense, error) {
	return l.store.ListByVendor(ctx, vendorID)
}

// EventOf resolves the event an expense belongs to, mapping a storage miss
// to ErrExpenseNotFound.
func (l *BudgetLedger) EventOf(ctx context.Context, expenseID string) (string, error) {
	eventID, err := l.store.EventOf(ctx, expenseID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrExpenseNotFound
		}
		return "", err
	}
	return eventID, nil
}

func (l *BudgetLedger) recompute(tx storage.ExpenseTx, eventID string, budgetAmount decimal.Decimal) (model.BudgetSnapshot, error) {
	expenses, err := tx.List()
	if err != nil {
		return model.BudgetSnapshot{}, err
	}
	return ComputeSnapshot(eventID, budgetAmount, expenses), nil
}
