package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Get returns the value stored under key. ok is false when the key is absent.
func (db *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: reading key %q: %w", key, err)
	}
	return value, true, nil
}

// Set writes value under key, replacing any previous value.
func (db *DB) Set(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing key %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are ignored.
func (db *DB) Delete(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: deleting key %q: %w", key, err)
	}
	return nil
}
