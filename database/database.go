// Package database is the postgres persistence layer for timecards and the
// users they belong to. The connection is injected by main, never opened here.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS timecard_users (
	id text PRIMARY KEY,
	name text NOT NULL,
	email text NOT NULL,
	is_manager boolean NOT NULL DEFAULT false,
	api_token text UNIQUE
);
CREATE TABLE IF NOT EXISTS timecards (
	id text PRIMARY KEY,
	owner_id text NOT NULL REFERENCES timecard_users(id),
	week_start_date timestamptz NOT NULL,
	entries jsonb NOT NULL DEFAULT '[]',
	total_hours double precision NOT NULL DEFAULT 0,
	completed boolean NOT NULL DEFAULT false
);
CREATE INDEX IF NOT EXISTS timecards_owner_week_idx
	ON timecards (owner_id, week_start_date DESC);
`

// Store wraps the sql pool with the queries this service needs.
type Store struct {
	db *sql.DB
}

// New opens the postgres pool, verifies the connection and makes sure the
// tables exist.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("error creating tables: %w", err)
	}
	slog.Info("database connection ready")
	return &Store{db: db}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// User is one row of timecard_users. Name and Email feed the manager view,
// IsManager feeds authorization.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	IsManager bool   `json:"isManager"`
}

// FindUserByToken resolves an API token to the user holding it. Returns
// ErrNotFound for an unknown token.
func (s *Store) FindUserByToken(ctx context.Context, token string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, is_manager FROM timecard_users WHERE api_token = $1;`,
		token).Scan(&u.ID, &u.Name, &u.Email, &u.IsManager)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, fmt.Errorf("error querying timecard_users: %w", err)
	}
	return u, nil
}
