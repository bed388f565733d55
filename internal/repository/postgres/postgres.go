// Package postgres implements the repository contracts on PostgreSQL via
// pgx's connection pool. It mirrors the sqlite package table for table so
// the server can switch drivers with one config key.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/idgen"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/repository"
)

var _ repository.Backend = (*DB)(nil)

// DB wraps a pgx pool.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, verifies the connection and migrates.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing database url: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}

// Close releases every pooled connection.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

// Ping is used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			display_name  TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     BIGINT UNIQUE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

// =========================================================================
// KV
// =========================================================================

func (db *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := db.pool.QueryRow(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres: reading key %q: %w", key, err)
	}
	return value, true, nil
}

func (db *DB) Set(ctx context.Context, key string, value []byte) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("postgres: writing key %q: %w", key, err)
	}
	return nil
}

func (db *DB) Delete(ctx context.Context, key string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres: deleting key %q: %w", key, err)
	}
	return nil
}

// =========================================================================
// USERS
// =========================================================================

const userColumns = `id, email, display_name, password_hash, github_id, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.GitHubID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = idgen.New()
	}
	user.Email = model.NormalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.GitHubID, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("postgres: inserting user %s: %w", user.Email, err)
	}
	return nil
}

func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return u, nil
}

func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	u, err := scanUser(db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting user by email: %w", err)
	}
	return u, nil
}

// UpsertGitHub follows the same lookup order as the sqlite backend: GitHub
// id first, then email, else insert.
func (db *DB) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("postgres: upserting GitHub user: missing GitHub id")
	}
	user.Email = model.NormalizeEmail(user.Email)

	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		existing, err := scanUser(tx.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE github_id = $1 FOR UPDATE`, *user.GitHubID))
		if errors.Is(err, pgx.ErrNoRows) && user.Email != "" {
			existing, err = scanUser(tx.QueryRow(ctx,
				`SELECT `+userColumns+` FROM users WHERE email = $1 FOR UPDATE`, user.Email))
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("postgres: looking up GitHub user %d: %w", *user.GitHubID, err)
		}

		now := time.Now().UTC()
		if existing != nil {
			user.ID = existing.ID
			user.CreatedAt = existing.CreatedAt
			user.PasswordHash = existing.PasswordHash
			if user.Email == "" {
				user.Email = existing.Email
			}
			if user.DisplayName == "" {
				user.DisplayName = existing.DisplayName
			}
			user.UpdatedAt = now
			_, err = tx.Exec(ctx,
				`UPDATE users SET email = $1, display_name = $2, github_id = $3, updated_at = $4 WHERE id = $5`,
				user.Email, user.DisplayName, *user.GitHubID, user.UpdatedAt, user.ID,
			)
			if err != nil {
				return fmt.Errorf("postgres: updating user %s: %w", user.ID, err)
			}
			return nil
		}

		if user.Email == "" {
			user.Email = fmt.Sprintf("%d@users.noreply.github.com", *user.GitHubID)
		}
		user.ID = idgen.New()
		user.CreatedAt = now
		user.UpdatedAt = now
		_, err = tx.Exec(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			user.ID, user.Email, user.DisplayName, user.PasswordHash, user.GitHubID, user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("postgres: inserting GitHub user %d: %w", *user.GitHubID, err)
		}
		return nil
	})
}
