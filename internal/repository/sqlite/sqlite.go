// Package sqlite implements the repository contracts on an embedded SQLite
// database.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the binary builds without a C
// toolchain. The CLI and the server can both open the same file.
//
// SCHEMA:
//
//	kv(key, value, updated_at)  one row per durable record
//	users(...)                  accounts for the HTTP API
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// registers the "sqlite" driver with database/sql
	_ "modernc.org/sqlite"

	"github.com/sakif/stash/internal/repository"
)

var _ repository.Backend = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements repository.Backend.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/stash.db" → file-based database (persistent)
//   - ":memory:"      → in-memory database, lost on Close
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty
	// database, so pin the pool to a single connection.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets the CLI read while the server writes the same file.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers defer it right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent;
// later column additions go through addColumnIfNotExists.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating kv table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Added after the first release; older files lack them.
	if err := db.addColumnIfNotExists("users", "display_name", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding display_name to users: %w", err)
	}
	if err := db.addColumnIfNotExists("users", "github_id", "INTEGER"); err != nil {
		return fmt.Errorf("adding github_id to users: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id ON users(github_id)
		WHERE github_id IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("creating users github_id index: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already
// exist. ALTER TABLE errors on duplicates, so check pragma_table_info first.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// Ping is used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
