// Package model defines the core domain types for the registration and
// budget reconciliation engine.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	StatusUpcoming  EventStatus = "upcoming"
	StatusOngoing   EventStatus = "ongoing"
	StatusCompleted EventStatus = "completed"
	StatusCancelled EventStatus = "cancelled"
)

// Event represents an event as seen by the engine. The engine only ever
// reads ID, Capacity and the budget derived from Price; the remaining
// fields belong to the surrounding application.
type Event struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Location    string          `json:"location"`
	Capacity    int             `json:"capacity"`
	Price       decimal.Decimal `json:"price"`
	VendorID    string          `json:"vendor_id,omitempty"`
	Status      EventStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BudgetAmount returns the total budget allotted to the event. The budget
// is derived from the ticket price; the engine treats it as immutable.
func (e *Event) BudgetAmount() decimal.Decimal {
	return e.Price
}

// Attendance records one user's registration for one event. At most one
// Attendance exists per (EventID, UserID) pair.
type Attendance struct {
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Expense is a single ledger entry against an event's budget.
type Expense struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"`
	VendorID    string          `json:"vendor_id,omitempty"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// ExpenseCategories is the closed set of accepted expense categories.
var ExpenseCategories = []string{
	"Venue", "Catering", "Decoration", "Marketing", "Staff", "Equipment", "Other",
}

// BudgetSnapshot is the derived view of an event's budget position. It is
// always recomputed in full from the event's expense set; it is never
// patched incrementally.
type BudgetSnapshot struct {
	EventID         string          `json:"event_id"`
	BudgetAmount    decimal.Decimal `json:"budget_amount"`
	TotalExpenses   decimal.Decimal `json:"total_expenses"`
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
	IsOverBudget    bool            `json:"is_over_budget"`
}

// RegistrationResult summarises the outcome of a successful register or
// unregister call.
type RegistrationResult struct {
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	RosterSize   int       `json:"roster_size"`
	RegisteredAt time.Time `json:"registered_at,omitempty"`
}

// ExpenseInput carries the caller-supplied fields for a new expense.
type ExpenseInput struct {
	VendorID    string          `json:"vendor_id,omitempty"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// ExpenseUpdate carries the mutable fields of an expense. Nil fields are
// left unchanged.
type ExpenseUpdate struct {
	Category    *string          `json:"category,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Location    string          `json:"location"`
	Capacity    int             `json:"capacity"`
	Price       decimal.Decimal `json:"price"`
	VendorID    string          `json:"vendor_id,omitempty"`
}

// RegisterRequest is the payload for registering a user for an event.
type RegisterRequest struct {
	UserID string `json:"user_id"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
