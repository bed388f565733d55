// Package memory is a process-local repository.Backend. Tests use it to
// count writes; the CLI uses it for --ephemeral sessions.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/idgen"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/repository"
)

var _ repository.Backend = (*DB)(nil)

type DB struct {
	mu     sync.Mutex
	kv     map[string][]byte
	writes int
	users  map[string]model.User
}

func New() *DB {
	return &DB{
		kv:    make(map[string][]byte),
		users: make(map[string]model.User),
	}
}

func (db *DB) Close() error { return nil }

func (db *DB) Get(_ context.Context, key string) ([]byte, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	v, ok := db.kv[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (db *DB) Set(_ context.Context, key string, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.kv[key] = append([]byte(nil), value...)
	db.writes++
	return nil
}

func (db *DB) Delete(_ context.Context, key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.kv, key)
	return nil
}

// Writes returns how many Set calls have succeeded.
func (db *DB) Writes() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.writes
}

func (db *DB) Create(_ context.Context, user *model.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	user.Email = model.NormalizeEmail(user.Email)
	if _, ok := db.findByEmail(user.Email); ok {
		return apperror.Conflict("user", user.Email)
	}
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = idgen.New()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	db.users[user.ID] = *user
	return nil
}

func (db *DB) GetByID(_ context.Context, id string) (*model.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (db *DB) GetByEmail(_ context.Context, email string) (*model.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	email = model.NormalizeEmail(email)
	u, ok := db.findByEmail(email)
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	return &u, nil
}

func (db *DB) UpsertGitHub(_ context.Context, user *model.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	user.Email = model.NormalizeEmail(user.Email)
	now := time.Now().UTC()

	var (
		existing model.User
		found    bool
	)
	for _, u := range db.users {
		if u.GitHubID != nil && user.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			existing, found = u, true
			break
		}
	}
	if !found && user.Email != "" {
		existing, found = db.findByEmail(user.Email)
	}

	if found {
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
		user.PasswordHash = existing.PasswordHash
		if user.Email == "" {
			user.Email = existing.Email
		}
		if user.DisplayName == "" {
			user.DisplayName = existing.DisplayName
		}
	} else {
		user.ID = idgen.New()
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	db.users[user.ID] = *user
	return nil
}

func (db *DB) findByEmail(email string) (model.User, bool) {
	for _, u := range db.users {
		if u.Email == email {
			return u, true
		}
	}
	return model.User{}, false
}
