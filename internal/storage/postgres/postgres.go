// Package postgres implements the storage contracts on PostgreSQL using
// pgx directly (no ORM).
//
// Per-event atomicity uses pessimistic locking: every Update begins a
// transaction and takes a row-level lock on the event row with
// SELECT … FOR UPDATE. Any concurrent Update on the same event blocks on
// that lock until the first transaction commits or rolls back, which
// serialises read-then-write sequences on one event's records while
// leaving other events uncontended.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/planora/eventledger/internal/model"
	"github.com/planora/eventledger/internal/storage"
)

// Store implements storage.RosterStore; its Expenses view implements
// storage.ExpenseStore.
type Store struct {
	db *pgxpool.Pool
}

// New constructs a Store over the given pool.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// fault classifies a database error as a retryable conflict or an
// availability fault, keeping the original message.
func fault(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return fmt.Errorf("%s: %v: %w", op, err, storage.ErrConflict)
		}
	}
	return fmt.Errorf("%s: %v: %w", op, err, storage.ErrUnavailable)
}

// withEventLock runs fn inside a transaction holding a row lock on the
// event row. fn errors roll the transaction back and pass through
// unchanged; database errors come back as storage faults.
func (s *Store) withEventLock(ctx context.Context, eventID string, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fault("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx,
		`SELECT id FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("event %s: %w", eventID, storage.ErrNotFound)
		}
		return fault("lock event row", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fault("commit transaction", err)
	}
	return nil
}

// ─── RosterStore ──────────────────────────────────────────────────────────────

// Update runs fn against the event's roster under the event row lock.
func (s *Store) Update(ctx context.Context, eventID string, fn func(tx storage.RosterTx) error) error {
	return s.withEventLock(ctx, eventID, func(tx pgx.Tx) error {
		return fn(&rosterTx{ctx: ctx, tx: tx, eventID: eventID})
	})
}

// Attendees returns the event's roster ordered by registration time
// ascending.
func (s *Store) Attendees(ctx context.Context, eventID string) ([]model.Attendance, error) {
	rows, err := s.db.Query(ctx,
		`SELECT event_id, user_id, registered_at
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY registered_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fault("list attendees", err)
	}
	defer rows.Close()

	var atts []model.Attendance
	for rows.Next() {
		var att model.Attendance
		if err := rows.Scan(&att.EventID, &att.UserID, &att.RegisteredAt); err != nil {
			return nil, fault("scan attendance", err)
		}
		atts = append(atts, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fault("list attendees", err)
	}
	return atts, nil
}

// IsRegistered reports roster membership.
func (s *Store) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	var registered bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2
		 )`,
		eventID, userID,
	).Scan(&registered)
	if err != nil {
		return false, fault("check registration", err)
	}
	return registered, nil
}

type rosterTx struct {
	ctx     context.Context
	tx      pgx.Tx
	eventID string
}

func (r *rosterTx) Size() (int, error) {
	var size int
	err := r.tx.QueryRow(r.ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`,
		r.eventID,
	).Scan(&size)
	if err != nil {
		return 0, fault("count roster", err)
	}
	return size, nil
}

func (r *rosterTx) Contains(userID string) (bool, error) {
	var registered bool
	err := r.tx.QueryRow(r.ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2
		 )`,
		r.eventID, userID,
	).Scan(&registered)
	if err != nil {
		return false, fault("check duplicate", err)
	}
	return registered, nil
}

func (r *rosterTx) Insert(att model.Attendance) error {
	_, err := r.tx.Exec(r.ctx,
		`INSERT INTO registrations (event_id, user_id, registered_at)
		 VALUES ($1, $2, $3)`,
		att.EventID, att.UserID, att.RegisteredAt,
	)
	if err != nil {
		return fault("insert registration", err)
	}
	return nil
}

func (r *rosterTx) Remove(userID string) (bool, error) {
	tag, err := r.tx.Exec(r.ctx,
		`DELETE FROM registrations WHERE event_id = $1 AND user_id = $2`,
		r.eventID, userID,
	)
	if err != nil {
		return false, fault("delete registration", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ─── ExpenseStore ─────────────────────────────────────────────────────────────

// expenseStore adapts Store to storage.ExpenseStore; both store contracts
// name their mutator Update.
type expenseStore struct {
	s *Store
}

// Expenses returns the store's storage.ExpenseStore view.
func (s *Store) Expenses() storage.ExpenseStore {
	return expenseStore{s: s}
}

func (v expenseStore) Update(ctx context.Context, eventID string, fn func(tx storage.ExpenseTx) error) error {
	return v.s.withEventLock(ctx, eventID, func(tx pgx.Tx) error {
		return fn(&expenseTx{ctx: ctx, tx: tx, eventID: eventID})
	})
}

func (v expenseStore) List(ctx context.Context, eventID string) ([]model.Expense, error) {
	rows, err := v.s.db.Query(ctx,
		`SELECT id, event_id, vendor_id, category, amount::text, description, recorded_at
		 FROM expenses
		 WHERE event_id = $1
		 ORDER BY recorded_at DESC`,
		eventID,
	)
	if err != nil {
		return nil, fault("list expenses", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func (v expenseStore) ListByVendor(ctx context.Context, vendorID string) ([]model.Expense, error) {
	rows, err := v.s.db.Query(ctx,
		`SELECT id, event_id, vendor_id, category, amount::text, description, recorded_at
		 FROM expenses
		 WHERE vendor_id = $1
		 ORDER BY recorded_at DESC`,
		vendorID,
	)
	if err != nil {
		return nil, fault("list vendor expenses", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func (v expenseStore) EventOf(ctx context.Context, expenseID string) (string, error) {
	var eventID string
	err := v.s.db.QueryRow(ctx,
		`SELECT event_id FROM expenses WHERE id = $1`,
		expenseID,
	).Scan(&eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
		}
		return "", fault("resolve expense event", err)
	}
	return eventID, nil
}

type expenseTx struct {
	ctx     context.Context
	tx      pgx.Tx
	eventID string
}

func (e *expenseTx) Get(expenseID string) (model.Expense, bool, error) {
	var (
		exp    model.Expense
		amount string
	)
	err := e.tx.QueryRow(e.ctx,
		`SELECT id, event_id, vendor_id, category, amount::text, description, recorded_at
		 FROM expenses
		 WHERE id = $1 AND event_id = $2`,
		expenseID, e.eventID,
	).Scan(&exp.ID, &exp.EventID, &exp.VendorID, &exp.Category, &amount, &exp.Description, &exp.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Expense{}, false, nil
		}
		return model.Expense{}, false, fault("get expense", err)
	}
	exp.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return model.Expense{}, false, fault("parse amount", err)
	}
	return exp, true, nil
}

func (e *expenseTx) Insert(exp model.Expense) error {
	_, err := e.tx.Exec(e.ctx,
		`INSERT INTO expenses (id, event_id, vendor_id, category, amount, description, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		exp.ID, exp.EventID, exp.VendorID, exp.Category, exp.Amount.String(), exp.Description, exp.RecordedAt,
	)
	if err != nil {
		return fault("insert expense", err)
	}
	return nil
}

func (e *expenseTx) Save(exp model.Expense) error {
	tag, err := e.tx.Exec(e.ctx,
		`UPDATE expenses
		 SET vendor_id = $3, category = $4, amount = $5, description = $6
		 WHERE id = $1 AND event_id = $2`,
		exp.ID, e.eventID, exp.VendorID, exp.Category, exp.Amount.String(), exp.Description,
	)
	if err != nil {
		return fault("update expense", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expense %s: %w", exp.ID, storage.ErrNotFound)
	}
	return nil
}

func (e *expenseTx) Delete(expenseID string) (bool, error) {
	tag, err := e.tx.Exec(e.ctx,
		`DELETE FROM expenses WHERE id = $1 AND event_id = $2`,
		expenseID, e.eventID,
	)
	if err != nil {
		return false, fault("delete expense", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (e *expenseTx) List() ([]model.Expense, error) {
	rows, err := e.tx.Query(e.ctx,
		`SELECT id, event_id, vendor_id, category, amount::text, description, recorded_at
		 FROM expenses
		 WHERE event_id = $1
		 ORDER BY recorded_at DESC`,
		e.eventID,
	)
	if err != nil {
		return nil, fault("list expenses", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func scanExpenses(rows pgx.Rows) ([]model.Expense, error) {
	var expenses []model.Expense
	for rows.Next() {
		var (
			exp    model.Expense
			amount string
		)
		if err := rows.Scan(&exp.ID, &exp.EventID, &exp.VendorID, &exp.Category, &amount, &exp.Description, &exp.RecordedAt); err != nil {
			return nil, fault("scan expense", err)
		}
		var err error
		exp.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fault("parse amount", err)
		}
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fault("scan expenses", err)
	}
	return expenses, nil
}
