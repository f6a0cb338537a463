package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/planora/eventledger/internal/ledger"
	"github.com/planora/eventledger/internal/model"
	"github.com/planora/eventledger/internal/service"
	"github.com/planora/eventledger/internal/storage"
	"github.com/planora/eventledger/internal/storage/memory"
)

// fixedDirectory serves a fixed set of events; the event CRUD endpoints
// are covered by the repository integration tests, so handler tests only
// need lookups.
type fixedDirectory struct {
	events map[string]*model.Event
}

func (d *fixedDirectory) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	return nil, fmt.Errorf("not supported")
}

func (d *fixedDirectory) List(ctx context.Context) ([]model.Event, error) {
	var out []model.Event
	for _, e := range d.events {
		out = append(out, *e)
	}
	return out, nil
}

func (d *fixedDirectory) ListByVendor(ctx context.Context, vendorID string) ([]model.Event, error) {
	return nil, nil
}

func (d *fixedDirectory) GetByID(ctx context.Context, id string) (*model.Event, error) {
	event, ok := d.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	return event, nil
}

func (d *fixedDirectory) Update(ctx context.Context, id string, req model.CreateEventRequest, status model.EventStatus) (*model.Event, error) {
	return nil, fmt.Errorf("not supported")
}

func (d *fixedDirectory) Delete(ctx context.Context, id string) error {
	return fmt.Errorf("not supported")
}

func newTestRouter(events ...*model.Event) http.Handler {
	dir := &fixedDirectory{events: make(map[string]*model.Event)}
	for _, e := range events {
		dir.events[e.ID] = e
	}
	store := memory.New()
	coordinator := ledger.NewCoordinator(dir,
		ledger.NewRegistrationLedger(store),
		ledger.NewBudgetLedger(store.Expenses()))
	h := NewEventHandler(service.NewEventService(dir, coordinator))

	r := chi.NewRouter()
	r.Route("/events", func(r chi.Router) {
		r.Post("/{id}/register", h.Register)
		r.Delete("/{id}/register", h.Unregister)
		r.Get("/{id}/attendees", h.ListAttendees)
		r.Post("/{id}/expenses", h.AddExpense)
		r.Get("/{id}/budget", h.EventBudget)
	})
	r.Route("/expenses", func(r chi.Router) {
		r.Put("/{id}", h.UpdateExpense)
		r.Delete("/{id}", h.DeleteExpense)
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterEndpointStatusCodes(t *testing.T) {
	router := newTestRouter(&model.Event{ID: "evt-1", Capacity: 1, Price: decimal.RequireFromString("100")})

	rec := doJSON(t, router, http.MethodPost, "/events/evt-1/register", `{"user_id":"u1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d, want 201", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/events/evt-1/register", `{"user_id":"u1"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/events/evt-1/register", `{"user_id":"u2"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("over-capacity register status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/events/nope/register", `{"user_id":"u1"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown event register status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/events/evt-1/register", `{"user_id":"stranger"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unregister stranger status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/events/evt-1/register", `{"user_id":"u1"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("unregister status = %d, want 200", rec.Code)
	}
}

func TestExpenseEndpoints(t *testing.T) {
	router := newTestRouter(&model.Event{ID: "evt-1", Capacity: 10, Price: decimal.RequireFromString("1000")})

	rec := doJSON(t, router, http.MethodPost, "/events/evt-1/expenses",
		`{"category":"Venue","amount":"300","description":"hall"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add expense status = %d, want 201: %s", rec.Code, rec.Body)
	}
	var created struct {
		Expense  model.Expense        `json:"expense"`
		Snapshot model.BudgetSnapshot `json:"snapshot"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !created.Snapshot.RemainingBudget.Equal(decimal.RequireFromString("700")) {
		t.Errorf("remaining = %s, want 700", created.Snapshot.RemainingBudget)
	}

	rec = doJSON(t, router, http.MethodPost, "/events/evt-1/expenses",
		`{"category":"Venue","amount":"-5","description":"bad"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative amount status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/expenses/"+created.Expense.ID,
		`{"amount":"1200"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update expense status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var updated struct {
		Snapshot model.BudgetSnapshot `json:"snapshot"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !updated.Snapshot.IsOverBudget {
		t.Error("snapshot not flagged over budget after 1200 expense on 1000 budget")
	}

	rec = doJSON(t, router, http.MethodPut, "/expenses/missing", `{"amount":"5"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("update missing expense status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/expenses/"+created.Expense.ID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete expense status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/events/evt-1/budget", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("budget status = %d, want 200", rec.Code)
	}
	var budget struct {
		Expenses []model.Expense      `json:"expenses"`
		Snapshot model.BudgetSnapshot `json:"snapshot"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &budget); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(budget.Expenses) != 0 {
		t.Errorf("expense count = %d, want 0", len(budget.Expenses))
	}
	if !budget.Snapshot.RemainingBudget.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("remaining = %s, want 1000", budget.Snapshot.RemainingBudget)
	}
}

func TestAttendeesEndpoint(t *testing.T) {
	router := newTestRouter(&model.Event{ID: "evt-1", Capacity: 10, Price: decimal.RequireFromString("100")})

	for _, u := range []string{"u1", "u2"} {
		rec := doJSON(t, router, http.MethodPost, "/events/evt-1/register",
			fmt.Sprintf(`{"user_id":"%s"}`, u))
		if rec.Code != http.StatusCreated {
			t.Fatalf("register %s status = %d", u, rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/events/evt-1/attendees", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("attendees status = %d, want 200", rec.Code)
	}
	var atts []model.Attendance
	if err := json.Unmarshal(rec.Body.Bytes(), &atts); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(atts) != 2 {
		t.Errorf("attendee count = %d, want 2", len(atts))
	}
}
