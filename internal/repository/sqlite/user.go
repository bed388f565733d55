package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/idgen"
	"github.com/sakif/stash/internal/model"
)

const userColumns = `id, email, display_name, password_hash, github_id, created_at, updated_at`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	err := s.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &githubID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &u, nil
}

func nullGitHubID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// Create inserts a new account. ID and timestamps are filled in on user.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = idgen.New()
	}
	user.Email = model.NormalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash,
		nullGitHubID(user.GitHubID), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}
	return nil
}

// GetByID retrieves a user by internal ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail retrieves a user by (normalized) email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UpsertGitHub looks the account up by GitHub id, then by email, and either
// refreshes it or inserts a new one. It runs in a transaction so two
// concurrent callbacks for the same account cannot both insert.
func (db *DB) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("sqlite: upserting GitHub user: missing GitHub id")
	}
	user.Email = model.NormalizeEmail(user.Email)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, *user.GitHubID))
	if errors.Is(err, sql.ErrNoRows) && user.Email != "" {
		existing, err = scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = ?`, user.Email))
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: looking up GitHub user %d: %w", *user.GitHubID, err)
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
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET email = ?, display_name = ?, github_id = ?, updated_at = ? WHERE id = ?`,
			user.Email, user.DisplayName, *user.GitHubID, user.UpdatedAt, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
	} else {
		if user.Email == "" {
			// GitHub hides the address for some accounts; the column is unique.
			user.Email = fmt.Sprintf("%d@users.noreply.github.com", *user.GitHubID)
		}
		user.ID = idgen.New()
		user.CreatedAt = now
		user.UpdatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			user.ID, user.Email, user.DisplayName, user.PasswordHash,
			*user.GitHubID, user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting GitHub user %d: %w", *user.GitHubID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing GitHub upsert: %w", err)
	}
	return nil
}

// modernc reports constraint failures as plain errors; the text is stable.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
