package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/planora/eventledger/internal/database"
	"github.com/planora/eventledger/internal/ledger"
	"github.com/planora/eventledger/internal/model"
	"github.com/planora/eventledger/internal/repository"
	"github.com/planora/eventledger/internal/storage"
)

// testPool connects to the database named by TEST_DATABASE_URL; tests are
// skipped when it is unset so the suite stays runnable without postgres.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func createEvent(t *testing.T, pool *pgxpool.Pool, capacity int, price string) *model.Event {
	t.Helper()
	repo := repository.NewEventRepository(pool)
	event, err := repo.Create(context.Background(), model.CreateEventRequest{
		Title:    "integration test event",
		Date:     time.Now().UTC(),
		Capacity: capacity,
		Price:    decimal.RequireFromString(price),
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Delete(context.Background(), event.ID)
	})
	return event
}

func TestRegistrationConcurrency(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	const capacity = 5
	const callers = 20
	event := createEvent(t, pool, capacity, "100")

	l := ledger.NewRegistrationLedger(New(pool))

	var g errgroup.Group
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			_, err := l.Register(ctx, event.ID, capacity, fmt.Sprintf("user-%d", i))
			results[i] = err
			return nil
		})
	}
	_ = g.Wait()

	var successes int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ledger.ErrCapacityExceeded):
		default:
			t.Fatalf("unexpected register error: %v", err)
		}
	}
	if successes != capacity {
		t.Errorf("successes = %d, want %d", successes, capacity)
	}

	atts, err := l.Attendees(ctx, event.ID)
	if err != nil {
		t.Fatalf("attendees: %v", err)
	}
	if len(atts) != capacity {
		t.Errorf("roster size = %d, want %d", len(atts), capacity)
	}
}

func TestRegistrationRoundTrip(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	event := createEvent(t, pool, 2, "100")

	l := ledger.NewRegistrationLedger(New(pool))

	if _, err := l.Register(ctx, event.ID, event.Capacity, "u1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := l.Register(ctx, event.ID, event.Capacity, "u1"); !errors.Is(err, ledger.ErrAlreadyRegistered) {
		t.Fatalf("duplicate register = %v, want ErrAlreadyRegistered", err)
	}

	registered, err := l.IsRegistered(ctx, event.ID, "u1")
	if err != nil {
		t.Fatalf("is registered: %v", err)
	}
	if !registered {
		t.Error("IsRegistered = false after register")
	}

	if _, err := l.Unregister(ctx, event.ID, "u1"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if _, err := l.Unregister(ctx, event.ID, "u1"); !errors.Is(err, ledger.ErrNotRegistered) {
		t.Fatalf("second unregister = %v, want ErrNotRegistered", err)
	}
}

func TestRegisterUnknownEventRow(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	l := ledger.NewRegistrationLedger(New(pool))
	_, err := l.Register(ctx, "00000000-0000-0000-0000-000000000000", 10, "u1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("register against missing event row = %v, want storage.ErrNotFound", err)
	}
}

func TestExpenseRoundTrip(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	event := createEvent(t, pool, 10, "1000")
	budget := event.BudgetAmount()

	l := ledger.NewBudgetLedger(New(pool).Expenses())

	exp, snap, err := l.AddExpense(ctx, event.ID, budget, model.ExpenseInput{
		VendorID:    "vendor-1",
		Category:    "Venue",
		Amount:      decimal.RequireFromString("300.50"),
		Description: "hall rental",
	})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if !snap.TotalExpenses.Equal(decimal.RequireFromString("300.50")) {
		t.Errorf("total = %s, want 300.50", snap.TotalExpenses)
	}
	if !snap.RemainingBudget.Equal(decimal.RequireFromString("699.50")) {
		t.Errorf("remaining = %s, want 699.50", snap.RemainingBudget)
	}

	amount := decimal.RequireFromString("1100.25")
	_, snap, err = l.UpdateExpense(ctx, exp.ID, budget, model.ExpenseUpdate{Amount: &amount})
	if err != nil {
		t.Fatalf("update expense: %v", err)
	}
	if !snap.IsOverBudget {
		t.Error("snapshot not over budget after update past budget")
	}
	if !snap.RemainingBudget.IsZero() {
		t.Errorf("remaining = %s, want 0", snap.RemainingBudget)
	}

	snap, err = l.DeleteExpense(ctx, exp.ID, budget)
	if err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	if !snap.TotalExpenses.IsZero() {
		t.Errorf("total after delete = %s, want 0", snap.TotalExpenses)
	}

	if _, err := l.DeleteExpense(ctx, exp.ID, budget); !errors.Is(err, ledger.ErrExpenseNotFound) {
		t.Fatalf("second delete = %v, want ErrExpenseNotFound", err)
	}
}

func TestConcurrentExpenseTotals(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	event := createEvent(t, pool, 10, "10000")
	budget := event.BudgetAmount()

	l := ledger.NewBudgetLedger(New(pool).Expenses())

	const n = 10
	amount := decimal.RequireFromString("12.34")
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, _, err := l.AddExpense(ctx, event.ID, budget, model.ExpenseInput{
				Category:    "Other",
				Amount:      amount,
				Description: "concurrent",
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("add: %v", err)
	}

	snap, err := l.Snapshot(ctx, event.ID, budget)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	want := amount.Mul(decimal.NewFromInt(n))
	if !snap.TotalExpenses.Equal(want) {
		t.Errorf("total = %s, want %s", snap.TotalExpenses, want)
	}
}
