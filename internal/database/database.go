// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds PostgreSQL connection settings read from environment
// variables, with local-development defaults.
type Config struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName   string `env:"DB_NAME" envDefault:"eventledger"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// ConfigFromEnv parses the database configuration from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse database config: %w", err)
	}
	return cfg, nil
}

// DSN builds a libpq-compatible connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// NewPool creates and validates a pgxpool connection pool.
// It retries up to 5 times to accommodate containers starting up.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// Sensible pool defaults for a small service.
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	return dial(5, 2*time.Second, func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	})
}

// dial runs connect up to attempts times, sleeping delay between failed
// attempts. The final failure returns immediately, with no trailing sleep
// or retry announcement.
func dial(attempts int, delay time.Duration, connect func() (*pgxpool.Pool, error)) (*pgxpool.Pool, error) {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var pool *pgxpool.Pool
		pool, err = connect()
		if err == nil {
			return pool, nil
		}
		if attempt < attempts {
			fmt.Printf("db connect attempt %d/%d failed: %v - retrying in %s\n", attempt, attempts, err, delay)
			time.Sleep(delay)
		}
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// migrations are applied in order at startup. Each statement is
// idempotent so repeated startups are safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		date        TIMESTAMPTZ NOT NULL,
		location    TEXT NOT NULL DEFAULT '',
		capacity    INTEGER NOT NULL CHECK (capacity > 0),
		price       NUMERIC(20,4) NOT NULL DEFAULT 0 CHECK (price >= 0),
		vendor_id   TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'upcoming',
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS registrations (
		event_id      TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		user_id       TEXT NOT NULL,
		registered_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (event_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id          TEXT PRIMARY KEY,
		event_id    TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		vendor_id   TEXT NOT NULL DEFAULT '',
		category    TEXT NOT NULL,
		amount      NUMERIC(20,4) NOT NULL CHECK (amount >= 0),
		description TEXT NOT NULL DEFAULT '',
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS expenses_event_idx ON expenses (event_id)`,
	`CREATE INDEX IF NOT EXISTS expenses_vendor_idx ON expenses (vendor_id)`,
}

// Migrate creates the schema the engine relies on. The composite primary
// key on registrations backs the uniqueness invariant; the amount and
// capacity checks back the non-negativity ones.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
