// Package model holds the records shared by storage, services and both
// transports: addresses, items, users and the query types around them.
package model

import "time"

// User represents a registered account.
//
// Users sign up with email + password, or through GitHub OAuth when it is
// configured. The client only ever reads id, email and displayName; the rest
// stays on the server.
//
// WHY GitHubID *int64?
// Most accounts never touch GitHub. A nil pointer maps to SQL NULL, which keeps
// the UNIQUE constraint on github_id satisfied for every password-only account.
type User struct {
	ID           string    `json:"id"                    db:"id"`
	Email        string    `json:"email"                 db:"email"`
	DisplayName  string    `json:"displayName,omitempty" db:"display_name"`
	PasswordHash string    `json:"-"                     db:"password_hash"` // bcrypt hash, empty for OAuth-only accounts
	GitHubID     *int64    `json:"-"                     db:"github_id"`
	CreatedAt    time.Time `json:"createdAt"             db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"             db:"updated_at"`
}

// GuestUserID is the implicit identity that owns the guest record.
const GuestUserID = "guest"
