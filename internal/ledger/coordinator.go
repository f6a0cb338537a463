package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/planora/eventledger/internal/model"
	"github.com/planora/eventledger/internal/storage"
)

// EventDirectory resolves event ids to event records. The engine itself
// never writes through it; capacity and budget are read-only inputs.
type EventDirectory interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// Coordinator exposes both ledgers through one interface for callers that
// only hold event ids. It resolves capacity and budget from the directory
// and forwards to the ledgers.
type Coordinator struct {
	directory EventDirectory
	roster    *RegistrationLedger
	budget    *BudgetLedger
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(directory EventDirectory, roster *RegistrationLedger, budget *BudgetLedger) *Coordinator {
	return &Coordinator{directory: directory, roster: roster, budget: budget}
}

// lookup resolves the event or reports ErrEventNotFound.
func (c *Coordinator) lookup(ctx context.Context, eventID string) (*model.Event, error) {
	event, err := c.directory.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("lookup event: %w", err)
	}
	return event, nil
}

// Register adds the user to the event's roster, enforcing the event's
// capacity.
func (c *Coordinator) Register(ctx context.Context, eventID, userID string) (model.RegistrationResult, error) {
	event, err := c.lookup(ctx, eventID)
	if err != nil {
		return model.RegistrationResult{}, err
	}
	return c.roster.Register(ctx, eventID, event.Capacity, userID)
}

// Unregister removes the user from the event's roster.
func (c *Coordinator) Unregister(ctx context.Context, eventID, userID string) (model.RegistrationResult, error) {
	if _, err := c.lookup(ctx, eventID); err != nil {
		return model.RegistrationResult{}, err
	}
	return c.roster.Unregister(ctx, eventID, userID)
}

// Attendees returns the event's roster ordered by registration time
// ascending.
func (c *Coordinator) Attendees(ctx context.Context, eventID string) ([]model.Attendance, error) {
	if _, err := c.lookup(ctx, eventID); err != nil {
		return nil, err
	}
	return c.roster.Attendees(ctx, eventID)
}

// IsRegistered reports whether the user is on the event's roster.
func (c *Coordinator) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	if _, err := c.lookup(ctx, eventID); err != nil {
		return false, err
	}
	return c.roster.IsRegistered(ctx, eventID, userID)
}

// AddExpense records an expense against the event's budget.
func (c *Coordinator) AddExpense(ctx context.Context, eventID string, in model.ExpenseInput) (model.Expense, model.BudgetSnapshot, error) {
	event, err := c.lookup(ctx, eventID)
	if err != nil {
		return model.Expense{}, model.BudgetSnapshot{}, err
	}
	return c.budget.AddExpense(ctx, eventID, event.BudgetAmount(), in)
}

// UpdateExpense applies field changes to an expense, resolving its event's
// budget first.
func (c *Coordinator) UpdateExpense(ctx context.Context, expenseID string, fields model.ExpenseUpdate) (model.Expense, model.BudgetSnapshot, error) {
	eventID, err := c.budget.EventOf(ctx, expenseID)
	if err != nil {
		return model.Expense{}, model.BudgetSnapshot{}, err
	}
	event, err := c.lookup(ctx, eventID)
	if err != nil {
		return model.Expense{}, model.BudgetSnapshot{}, err
	}
	return c.budget.UpdateExpense(ctx, expenseID, event.BudgetAmount(), fields)
}

// DeleteExpense removes an expense, resolving its event's budget first.
func (c *Coordinator) DeleteExpense(ctx context.Context, expenseID string) (model.BudgetSnapshot, error) {
	eventID, err := c.budget.EventOf(ctx, expenseID)
	if err != nil {
		return model.BudgetSnapshot{}, err
	}
	event, err := c.lookup(ctx, eventID)
	if err != nil {
		return model.BudgetSnapshot{}, err
	}
	return c.budget.DeleteExpense(ctx, expenseID, event.BudgetAmount())
}

// Snapshot derives the event's budget position from its current expense
// set.
func (c *Coordinator) Snapshot(ctx context.Context, eventID string) (model.BudgetSnapshot, error) {
	event, err := c.lookup(ctx, eventID)
	if err != nil {
		return model.BudgetSnapshot{}, err
	}
	return c.budget.Snapshot(ctx, eventID, event.BudgetAmount())
}

// Expenses returns the event's expenses ordered by recording time, newest
// first.
func (c *Coordinator) Expenses(ctx context.Context, eventID string) ([]model.Expense, error) {
	if _, err := c.lookup(ctx, eventID); err != nil {
		return nil, err
	}
	return c.budget.Expenses(ctx, eventID)
}

// EventBudget returns the event's expenses together with its snapshot.
// The snapshot is derived from the single fetched expense list, never
// from a second read, so the two halves always agree with each other even
// while concurrent mutations land.
func (c *Coordinator) EventBudget(ctx context.Context, eventID string) ([]model.Expense, model.BudgetSnapshot, error) {
	event, err := c.lookup(ctx, eventID)
	if err != nil {
		return nil, model.BudgetSnapshot{}, err
	}
	expenses, err := c.budget.Expenses(ctx, eventID)
	if err != nil {
		return nil, model.BudgetSnapshot{}, err
	}
	return expenses, ComputeSnapshot(eventID, event.BudgetAmount(), expenses), nil
}

// ExpensesByVendor returns a vendor's expenses across all events, newest
// first.
func (c *Coordinator) ExpensesByVendor(ctx context.Context, vendorID string) ([]model.Expense, error) {
	return c.budget.ExpensesByVendor(ctx, vendorID)
}
