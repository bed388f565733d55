package store

import (
	"context"
	"slices"

	"github.com/sakif/stash/internal/model"
)

// ListAddresses pages through addresses in stored order, newest first.
func (s *Store) ListAddresses(ctx context.Context, page, pageSize int) (model.Page[model.Address], error) {
	page, pageSize = normalizePage(page, pageSize)

	var out model.Page[model.Address]
	err := s.read(ctx, func(rec *record) {
		out = model.Paginate(rec.Addresses, page, pageSize)
	})
	return out, err
}

// GetAddress returns the address with id. ok is false when there is none.
func (s *Store) GetAddress(ctx context.Context, id string) (model.Address, bool, error) {
	var (
		out model.Address
		ok  bool
	)
	err := s.read(ctx, func(rec *record) {
		if i := indexAddress(rec.Addresses, id); i >= 0 {
			out, ok = rec.Addresses[i], true
		}
	})
	return out, ok, err
}

// CreateAddress stores a new address at the front of the list.
func (s *Store) CreateAddress(ctx context.Context, in model.AddressInput) (model.Address, error) {
	now := s.now()
	a := model.Address{
		ID:         s.m.newID(),
		UserID:     in.UserID,
		Label:      in.Label,
		Street:     in.Street,
		City:       in.City,
		PostalCode: in.PostalCode,
		SharedWith: model.NormalizeEmails(in.SharedWith),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if a.UserID == "" {
		a.UserID = s.owner
	}
	if a.Label == "" {
		a.Label = model.DefaultAddressLabel
	}

	err := s.mutate(ctx, func(rec *record) bool {
		rec.Addresses = slices.Insert(rec.Addresses, 0, a)
		return true
	})
	if err != nil {
		return model.Address{}, err
	}
	return a, nil
}

// UpdateAddress merges patch over the stored address.
func (s *Store) UpdateAddress(ctx context.Context, id string, patch model.AddressPatch) (model.Address, bool, error) {
	return s.updateAddress(ctx, id, patch.Apply)
}

// ShareAddress adds email to SharedWith. Sharing twice is a no-op apart
// from the timestamp.
func (s *Store) ShareAddress(ctx context.Context, id, email string) (model.Address, bool, error) {
	return s.updateAddress(ctx, id, func(a model.Address) model.Address {
		a.SharedWith = model.NormalizeEmails(append(slices.Clone(a.SharedWith), email))
		return a
	})
}

// UnshareAddress removes email from SharedWith.
func (s *Store) UnshareAddress(ctx context.Context, id, email string) (model.Address, bool, error) {
	email = model.NormalizeEmail(email)
	return s.updateAddress(ctx, id, func(a model.Address) model.Address {
		a.SharedWith = slices.DeleteFunc(slices.Clone(a.SharedWith), func(e string) bool { return e == email })
		return a
	})
}

func (s *Store) updateAddress(ctx context.Context, id string, apply func(model.Address) model.Address) (model.Address, bool, error) {
	var (
		out   model.Address
		found bool
	)
	err := s.mutate(ctx, func(rec *record) bool {
		i := indexAddress(rec.Addresses, id)
		if i < 0 {
			return false
		}
		prev := rec.Addresses[i]
		next := apply(prev)
		// identity and creation time are not patchable
		next.ID, next.UserID, next.CreatedAt = prev.ID, prev.UserID, prev.CreatedAt
		if next.SharedWith == nil {
			next.SharedWith = []string{}
		}
		next.UpdatedAt = touch(s.now(), prev.UpdatedAt)

		rec.Addresses[i] = next
		out, found = next, true
		return true
	})
	return out, found, err
}

// DeleteAddress removes the address and moves its items to Unlocated in the
// same write. Unknown ids are ignored.
func (s *Store) DeleteAddress(ctx context.Context, id string) error {
	return s.mutate(ctx, func(rec *record) bool {
		i := indexAddress(rec.Addresses, id)
		if i < 0 {
			return false
		}
		rec.Addresses = slices.Delete(rec.Addresses, i, i+1)

		now := s.now()
		for j := range rec.Items {
			if rec.Items[j].AddressID == id {
				rec.Items[j].AddressID = ""
				rec.Items[j].UpdatedAt = touch(now, rec.Items[j].UpdatedAt)
			}
		}
		return true
	})
}

func indexAddress(as []model.Address, id string) int {
	return slices.IndexFunc(as, func(a model.Address) bool { return a.ID == id })
}
