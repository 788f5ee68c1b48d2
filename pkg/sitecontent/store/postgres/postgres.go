package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/site-content/pkg/sitecontent"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Schema creates the entries table.
const Schema = `
CREATE TABLE IF NOT EXISTS site_content_entries (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Backend implements sitecontent.Store using PostgreSQL
type Backend struct {
	db DBTX
}

// New creates a new PostgreSQL store
func New(db DBTX) *Backend {
	return &Backend{db: db}
}

// NewWithPool creates a new PostgreSQL store with connection pool
func NewWithPool(pool *pgxpool.Pool) *Backend {
	return &Backend{db: pool}
}

// Migrate creates the entries table if it does not exist
func (b *Backend) Migrate(ctx context.Context) error {
	if _, err := b.db.Exec(ctx, Schema); err != nil {
		return handlePostgresError("migrate", err)
	}
	return nil
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		case "53100": // disk_full
			return fmt.Errorf("%w: %s", sitecontent.ErrQuotaExceeded, pgErr.Message)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Get returns the value for key
func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := b.db.QueryRow(ctx, `SELECT value FROM site_content_entries WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", sitecontent.ErrKeyNotFound
	}
	if err != nil {
		return "", &sitecontent.StoreError{Backend: "postgres", Key: key, Op: "get", Err: handlePostgresError("get", err)}
	}
	return value, nil
}

// Set upserts the value for key
func (b *Backend) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO site_content_entries (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err := b.db.Exec(ctx, query, key, value); err != nil {
		return &sitecontent.StoreError{Backend: "postgres", Key: key, Op: "set", Err: handlePostgresError("set", err)}
	}
	return nil
}

// Remove deletes key
func (b *Backend) Remove(ctx context.Context, key string) error {
	if _, err := b.db.Exec(ctx, `DELETE FROM site_content_entries WHERE key = $1`, key); err != nil {
		return &sitecontent.StoreError{Backend: "postgres", Key: key, Op: "remove", Err: handlePostgresError("remove", err)}
	}
	return nil
}
