// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planora/eventledger/internal/ledger"
	"github.com/planora/eventledger/internal/model"
	"github.com/planora/eventledger/internal/service"
	"github.com/planora/eventledger/internal/storage"
)

// EventHandler holds all HTTP handlers for the engine's API.
type EventHandler struct {
	svc *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeEngineError maps engine outcomes and storage faults to HTTP
// statuses. Anything unrecognised is treated as a validation failure.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, ledger.ErrExpenseNotFound):
		writeError(w, http.StatusNotFound, "expense not found")
	case errors.Is(err, ledger.ErrNotRegistered):
		writeError(w, http.StatusNotFound, "user is not registered for this event")
	case errors.Is(err, ledger.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "event is at capacity")
	case errors.Is(err, ledger.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "user is already registered for this event")
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "expense amount must not be negative")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrConflict), errors.Is(err, storage.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable, retry later")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// ─── Event handlers ───────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// ListVendorEvents handles GET /events/vendor/{vendorID}
func (h *EventHandler) ListVendorEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListVendorEvents(r.Context(), chi.URLParam(r, "vendorID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		model.CreateEventRequest
		Status model.EventStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Status == "" {
		req.Status = model.StatusUpcoming
	}

	event, err := h.svc.UpdateEvent(r.Context(), chi.URLParam(r, "id"), req.CreateEventRequest, req.Status)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "event deleted"})
}

// ─── Registration handlers ────────────────────────────────────────────────────

// Register handles POST /events/{id}/register
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Register(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Unregister handles DELETE /events/{id}/register
func (h *EventHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Unregister(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListAttendees handles GET /events/{id}/attendees
func (h *EventHandler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	atts, err := h.svc.ListAttendees(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if atts == nil {
		atts = []model.Attendance{}
	}
	writeJSON(w, http.StatusOK, atts)
}

// ─── Finance handlers ─────────────────────────────────────────────────────────

// expenseResponse pairs an expense with the snapshot recomputed after the
// mutation that produced it.
type expenseResponse struct {
	Expense  model.Expense        `json:"expense"`
	Snapshot model.BudgetSnapshot `json:"snapshot"`
}

// AddExpense handles POST /events/{id}/expenses
func (h *EventHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	var in model.ExpenseInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	exp, snap, err := h.svc.AddExpense(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expenseResponse{Expense: exp, Snapshot: snap})
}

// UpdateExpense handles PUT /expenses/{id}
func (h *EventHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var fields model.ExpenseUpdate
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	exp, snap, err := h.svc.UpdateExpense(r.Context(), chi.URLParam(r, "id"), fields)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenseResponse{Expense: exp, Snapshot: snap})
}

// DeleteExpense handles DELETE /expenses/{id}
func (h *EventHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.DeleteExpense(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "expense deleted", "snapshot": snap})
}

// EventBudget handles GET /events/{id}/budget
func (h *EventHandler) EventBudget(w http.ResponseWriter, r *http.Request) {
	expenses, snap, err := h.svc.EventBudget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"expenses": expenses,
		"snapshot": snap,
	})
}

// ListVendorExpenses handles GET /expenses/vendor/{vendorID}
func (h *EventHandler) ListVendorExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.svc.ListVendorExpenses(r.Context(), chi.URLParam(r, "vendorID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
