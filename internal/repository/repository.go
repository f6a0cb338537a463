// Package repository implements the event directory: the store of event
// records the engine reads capacity and budget from. It uses pgx directly
// (no ORM) for transparency and performance.
//
// The directory owns the descriptive event fields; the engine ledgers only
// ever read id, capacity, and the budget derived from price.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/planora/eventledger/internal/model"
	"github.com/planora/eventledger/internal/storage"
)

const eventColumns = `id, title, description, date, location, capacity, price::text, vendor_id, status, created_at, updated_at`

// EventRepository handles persistence for event records.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	now := time.Now().UTC()
	event := &model.Event{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Price:       req.Price,
		VendorID:    req.VendorID,
		Status:      model.StatusUpcoming,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, description, date, location, capacity, price, vendor_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, event.Title, event.Description, event.Date, event.Location,
		event.Capacity, event.Price.String(), event.VendorID, string(event.Status),
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns all events ordered by creation time descending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// ListByVendor returns one vendor's events ordered by creation time
// descending.
func (r *EventRepository) ListByVendor(ctx context.Context, vendorID string) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE vendor_id = $1 ORDER BY created_at DESC`,
		vendorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list vendor events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// GetByID returns a single event or storage.ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		id,
	)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// Update overwrites the event's descriptive fields. Capacity and price are
// deliberately left out: the engine treats them as immutable for the
// lifetime of the event's ledgers.
func (r *EventRepository) Update(ctx context.Context, id string, req model.CreateEventRequest, status model.EventStatus) (*model.Event, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE events
		 SET title = $2, description = $3, date = $4, location = $5, status = $6, updated_at = $7
		 WHERE id = $1`,
		id, req.Title, req.Description, req.Date, req.Location, string(status), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

// Delete removes the event; registrations and expenses cascade.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		e      model.Event
		price  string
		status string
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Location,
		&e.Capacity, &price, &e.VendorID, &status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	e.Status = model.EventStatus(status)
	return &e, nil
}
