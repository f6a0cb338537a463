// Package service implements business validation and orchestration
// between HTTP handlers and the engine.
package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/planora/eventledger/internal/ledger"
	"github.com/planora/eventledger/internal/model"
)

// Directory is the slice of the event repository the service needs.
type Directory interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	ListByVendor(ctx context.Context, vendorID string) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, id string, req model.CreateEventRequest, status model.EventStatus) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

// Engine is the slice of the ledger coordinator the service needs.
type Engine interface {
	Register(ctx context.Context, eventID, userID string) (model.RegistrationResult, error)
	Unregister(ctx context.Context, eventID, userID string) (model.RegistrationResult, error)
	Attendees(ctx context.Context, eventID string) ([]model.Attendance, error)
	IsRegistered(ctx context.Context, eventID, userID string) (bool, error)
	AddExpense(ctx context.Context, eventID string, in model.ExpenseInput) (model.Expense, model.BudgetSnapshot, error)
	UpdateExpense(ctx context.Context, expenseID string, fields model.ExpenseUpdate) (model.Expense, model.BudgetSnapshot, error)
	DeleteExpense(ctx context.Context, expenseID string) (model.BudgetSnapshot, error)
	Snapshot(ctx context.Context, eventID string) (model.BudgetSnapshot, error)
	Expenses(ctx context.Context, eventID string) ([]model.Expense, error)
	EventBudget(ctx context.Context, eventID string) ([]model.Expense, model.BudgetSnapshot, error)
	ExpensesByVendor(ctx context.Context, vendorID string) ([]model.Expense, error)
}

// EventService orchestrates event, registration, and finance operations.
type EventService struct {
	directory Directory
	engine    Engine
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(directory Directory, engine Engine) *EventService {
	return &EventService{directory: directory, engine: engine}
}

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent validates the request and delegates to the directory.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("event title is required")
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("event date is required")
	}
	if req.Capacity <= 0 {
		return nil, fmt.Errorf("capacity must be a positive integer")
	}
	if req.Capacity > 100_000 {
		return nil, fmt.Errorf("capacity cannot exceed 100,000")
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative")
	}
	return s.directory.Create(ctx, req)
}

// ListEvents returns all events.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.directory.List(ctx)
}

// ListVendorEvents returns one vendor's events.
func (s *EventService) ListVendorEvents(ctx context.Context, vendorID string) ([]model.Event, error) {
	if vendorID == "" {
		return nil, fmt.Errorf("vendor id is required")
	}
	return s.directory.ListByVendor(ctx, vendorID)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is required")
	}
	return s.directory.GetByID(ctx, id)
}

// UpdateEvent validates and applies descriptive changes to an event.
func (s *EventService) UpdateEvent(ctx context.Context, id string, req model.CreateEventRequest, status model.EventStatus) (*model.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is required")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("event title is required")
	}
	switch status {
	case model.StatusUpcoming, model.StatusOngoing, model.StatusCompleted, model.StatusCancelled:
	default:
		return nil, fmt.Errorf("invalid event status %q", status)
	}
	return s.directory.Update(ctx, id, req, status)
}

// DeleteEvent removes an event and, by cascade, its roster and expenses.
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("event id is required")
	}
	return s.directory.Delete(ctx, id)
}

// ─── Registrations ────────────────────────────────────────────────────────────

// Register validates the request and delegates the capacity-guarded
// registration to the engine.
func (s *EventService) Register(ctx context.Context, eventID, userID string) (model.RegistrationResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.RegistrationResult{}, fmt.Errorf("user_id is required")
	}
	if eventID == "" {
		return model.RegistrationResult{}, fmt.Errorf("event id is required")
	}
	return s.engine.Register(ctx, eventID, userID)
}

// Unregister removes a user's registration.
func (s *EventService) Unregister(ctx context.Context, eventID, userID string) (model.RegistrationResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.RegistrationResult{}, fmt.Errorf("user_id is required")
	}
	if eventID == "" {
		return model.RegistrationResult{}, fmt.Errorf("event id is required")
	}
	return s.engine.Unregister(ctx, eventID, userID)
}

// ListAttendees returns an event's roster.
func (s *EventService) ListAttendees(ctx context.Context, eventID string) ([]model.Attendance, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	return s.engine.Attendees(ctx, eventID)
}

// ─── Finance ──────────────────────────────────────────────────────────────────

// AddExpense validates the expense fields and records it through the
// engine.
func (s *EventService) AddExpense(ctx context.Context, eventID string, in model.ExpenseInput) (model.Expense, model.BudgetSnapshot, error) {
	if eventID == "" {
		return model.Expense{}, model.BudgetSnapshot{}, fmt.Errorf("event id is required")
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return model.Expense{}, model.BudgetSnapshot{}, fmt.Errorf("description is required")
	}
	if !validCategory(in.Category) {
		return model.Expense{}, model.BudgetSnapshot{}, fmt.Errorf("invalid category %q", in.Category)
	}
	if in.Amount.IsNegative() {
		return model.Expense{}, model.BudgetSnapshot{}, ledger.ErrInvalidAmount
	}
	return s.engine.AddExpense(ctx, eventID, in)
}

// UpdateExpense validates the changed fields and applies them through the
// engine.
func (s *EventService) UpdateExpense(ctx context.Context, expenseID string, fields model.ExpenseUpdate) (model.Expense, model.BudgetSnapshot, error) {
	if expenseID == "" {
		return model.Expense{}, model.BudgetSnapshot{}, fmt.Errorf("expense id is required")
	}
	if fields.Category != nil && !validCategory(*fields.Category) {
		return model.Expense{}, model.BudgetSnapshot{}, fmt.Errorf("invalid category %q", *fields.Category)
	}
	if fields.Description != nil && strings.TrimSpace(*fields.Description) == "" {
		return model.Expense{}, model.BudgetSnapshot{}, fmt.Errorf("description must not be empty")
	}
	if fields.Amount != nil && fields.Amount.IsNegative() {
		return model.Expense{}, model.BudgetSnapshot{}, ledger.ErrInvalidAmount
	}
	return s.engine.UpdateExpense(ctx, expenseID, fields)
}

// DeleteExpense removes an expense through the engine.
func (s *EventService) DeleteExpense(ctx context.Context, expenseID string) (model.BudgetSnapshot, error) {
	if expenseID == "" {
		return model.BudgetSnapshot{}, fmt.Errorf("expense id is required")
	}
	return s.engine.DeleteExpense(ctx, expenseID)
}

// EventBudget returns an event's expenses together with its snapshot, the
// way the finance dashboard consumes them. Both halves come from one read
// of the expense set, so the snapshot always sums the listed expenses.
func (s *EventService) EventBudget(ctx context.Context, eventID string) ([]model.Expense, model.BudgetSnapshot, error) {
	if eventID == "" {
		return nil, model.BudgetSnapshot{}, fmt.Errorf("event id is required")
	}
	return s.engine.EventBudget(ctx, eventID)
}

// ListVendorExpenses returns a vendor's expenses across all events.
func (s *EventService) ListVendorExpenses(ctx context.Context, vendorID string) ([]model.Expense, error) {
	if vendorID == "" {
		return nil, fmt.Errorf("vendor id is required")
	}
	return s.engine.ExpensesByVendor(ctx, vendorID)
}

func validCategory(category string) bool {
	return slices.Contains(model.ExpenseCategories, category)
}
