// Package repository declares the storage contracts the rest of the
// application depends on.
//
// Inventory data is not relational here: each owner's addresses and items
// live together in one JSON record, the way a browser keeps them under a
// single localStorage key. KVStore is that durable key-value record. Users
// are the one relational table, because login needs lookups by email and by
// GitHub id.
//
// Three backends implement both contracts: sqlite (default, single file),
// postgres (pgx), and memory (tests and throwaway CLI sessions).
package repository

import (
	"context"

	"github.com/sakif/stash/internal/model"
)

// KVStore is a durable map from string keys to opaque byte values.
//
// Get reports absence with ok == false rather than an error. Set replaces the
// whole value. Delete of a missing key is not an error.
type KVStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// UserRepository persists accounts.
//
// GetByID and GetByEmail return an apperror.NotFound when nothing matches.
// Create returns apperror.Conflict when the email is already registered.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHub creates or refreshes the account tied to user.GitHubID.
	// An existing password account with the same email gets linked instead
	// of duplicated. user is updated in place with the stored ID and times.
	UpsertGitHub(ctx context.Context, user *model.User) error
}

// Backend is what the server opens at startup: both contracts plus the
// handle's lifecycle.
type Backend interface {
	KVStore
	UserRepository
	Close() error
}
