package database

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestDialStopsAfterLastAttempt(t *testing.T) {
	connErr := errors.New("connection refused")
	calls := 0
	start := time.Now()
	_, err := dial(3, 50*time.Millisecond, func() (*pgxpool.Pool, error) {
		calls++
		return nil, connErr
	})
	elapsed := time.Since(start)

	if calls != 3 {
		t.Errorf("connect called %d times, want 3", calls)
	}
	if !errors.Is(err, connErr) {
		t.Errorf("err = %v, want wrapped %v", err, connErr)
	}
	// Two sleeps between three attempts, none after the last.
	if elapsed >= 150*time.Millisecond {
		t.Errorf("dial took %s, want under 150ms for two 50ms pauses", elapsed)
	}
}

func TestDialReturnsOnFirstSuccess(t *testing.T) {
	calls := 0
	pool, err := dial(5, time.Millisecond, func() (*pgxpool.Pool, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("not yet")
		}
		return &pgxpool.Pool{}, nil
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if pool == nil {
		t.Fatal("dial returned nil pool")
	}
	if calls != 2 {
		t.Errorf("connect called %d times, want 2", calls)
	}
}
