package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tendant/site-content/pkg/sitecontent"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS site_content_entries (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Backend implements sitecontent.Store on a single SQLite file
type Backend struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the table exists.
func Open(ctx context.Context, path string) (*Backend, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one writer at a time; sqlite serializes writes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create entries table: %w", err)
	}
	return &Backend{db: db}, nil
}

// Close closes the database
func (b *Backend) Close() error {
	return b.db.Close()
}

// Get returns the value for key
func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM site_content_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sitecontent.ErrKeyNotFound
	}
	if err != nil {
		return "", &sitecontent.StoreError{Backend: "sqlite", Key: key, Op: "get", Err: err}
	}
	return value, nil
}

// Set upserts the value for key
func (b *Backend) Set(ctx context.Context, key, value string) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO site_content_entries (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return &sitecontent.StoreError{Backend: "sqlite", Key: key, Op: "set", Err: err}
	}
	return nil
}

// Remove deletes key
func (b *Backend) Remove(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM site_content_entries WHERE key = ?`, key); err != nil {
		return &sitecontent.StoreError{Backend: "sqlite", Key: key, Op: "remove", Err: err}
	}
	return nil
}
