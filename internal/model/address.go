package model

import (
	"strings"
	"time"
)

// Address is a storage location that owns items and can be shared with
// other people by email.
//
// SharedWith only ever holds trimmed, lower-cased emails without duplicates;
// NormalizeEmails is the single place that enforces it.
type Address struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Label      string    `json:"label"`
	Street     string    `json:"street,omitempty"`
	City       string    `json:"city,omitempty"`
	PostalCode string    `json:"postalCode,omitempty"`
	SharedWith []string  `json:"sharedWith"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// DefaultAddressLabel is used when an address is created without a label.
const DefaultAddressLabel = "Untitled"

// AddressInput carries the fields accepted when creating an address.
type AddressInput struct {
	UserID     string   `json:"userId,omitempty"`
	Label      string   `json:"label"      validate:"max=100"`
	Street     string   `json:"street"     validate:"max=200"`
	City       string   `json:"city"       validate:"max=100"`
	PostalCode string   `json:"postalCode" validate:"max=20"`
	SharedWith []string `json:"sharedWith" validate:"dive,email"`
}

// AddressPatch is a partial update. Nil / unset fields keep their current value.
type AddressPatch struct {
	Label      *string     `json:"label,omitempty"`
	Street     Opt[string] `json:"street,omitzero"`
	City       Opt[string] `json:"city,omitzero"`
	PostalCode Opt[string] `json:"postalCode,omitzero"`
	SharedWith *[]string   `json:"sharedWith,omitempty"`
}

// Apply merges the patch over a copy of a and returns it.
// Timestamps are left to the caller.
func (p AddressPatch) Apply(a Address) Address {
	if p.Label != nil {
		a.Label = *p.Label
	}
	a.Street = p.Street.Merge(a.Street)
	a.City = p.City.Merge(a.City)
	a.PostalCode = p.PostalCode.Merge(a.PostalCode)
	if p.SharedWith != nil {
		a.SharedWith = NormalizeEmails(*p.SharedWith)
	}
	return a
}

// NormalizeEmail trims and lower-cases an email for use in SharedWith.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeEmails normalizes every entry, drops blanks and duplicates, and
// keeps first-seen order. The result is never nil.
func NormalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = NormalizeEmail(e)
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
