package store

import (
	"context"
	"slices"
	"strings"

	"github.com/sakif/stash/internal/model"
)

// ListItems filters by address and text, then pages. Total is the number of
// matches before paging.
//
// The text query is trimmed and lower-cased, then matched as a substring of
// name, description and tags joined together.
func (s *Store) ListItems(ctx context.Context, q model.ItemQuery) (model.Page[model.Item], error) {
	page, pageSize := normalizePage(q.Page, q.PageSize)
	needle := strings.ToLower(strings.TrimSpace(q.Q))

	var out model.Page[model.Item]
	err := s.read(ctx, func(rec *record) {
		matched := make([]model.Item, 0, len(rec.Items))
		for _, it := range rec.Items {
			if !q.Address.Matches(it) {
				continue
			}
			if needle != "" && !strings.Contains(haystack(it), needle) {
				continue
			}
			matched = append(matched, it)
		}
		out = model.Paginate(matched, page, pageSize)
	})
	return out, err
}

func haystack(it model.Item) string {
	return strings.ToLower(it.Name + "\n" + it.Description + "\n" + strings.Join(it.Tags, " "))
}

// AllItems returns every item matching the address filter, unpaged.
func (s *Store) AllItems(ctx context.Context, f model.AddressFilter) ([]model.Item, error) {
	var out []model.Item
	err := s.read(ctx, func(rec *record) {
		out = make([]model.Item, 0, len(rec.Items))
		for _, it := range rec.Items {
			if f.Matches(it) {
				out = append(out, it)
			}
		}
	})
	return out, err
}

// CountItems returns the size of the whole item collection.
func (s *Store) CountItems(ctx context.Context) (int, error) {
	var n int
	err := s.read(ctx, func(rec *record) { n = len(rec.Items) })
	return n, err
}

func (s *Store) GetItem(ctx context.Context, id string) (model.Item, bool, error) {
	var (
		out model.Item
		ok  bool
	)
	err := s.read(ctx, func(rec *record) {
		if i := indexItem(rec.Items, id); i >= 0 {
			out, ok = rec.Items[i], true
		}
	})
	return out, ok, err
}

// CreateItem stores a new item at the front of the list. A blank name
// becomes DefaultItemName; missing collections become empty ones.
func (s *Store) CreateItem(ctx context.Context, in model.ItemInput) (model.Item, error) {
	now := s.now()
	it := model.Item{
		ID:                 s.m.newID(),
		UserID:             s.owner,
		AddressID:          in.AddressID,
		Name:               in.Name,
		Description:        in.Description,
		PurchaseDate:       in.PurchaseDate,
		PurchasePriceCents: in.PurchasePriceCents,
		Currency:           in.Currency,
		Tags:               model.CleanTags(in.Tags),
		Images:             slices.Clone(in.Images),
		Receipts:           slices.Clone(in.Receipts),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if it.Name == "" {
		it.Name = model.DefaultItemName
	}
	it.NormalizeCollections()

	err := s.mutate(ctx, func(rec *record) bool {
		rec.Items = slices.Insert(rec.Items, 0, it)
		return true
	})
	if err != nil {
		return model.Item{}, err
	}
	return it, nil
}

// UpdateItem merges patch over the stored item.
func (s *Store) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) (model.Item, bool, error) {
	var (
		out   model.Item
		found bool
	)
	err := s.mutate(ctx, func(rec *record) bool {
		i := indexItem(rec.Items, id)
		if i < 0 {
			return false
		}
		prev := rec.Items[i]
		next := patch.Apply(prev)
		next.ID, next.UserID, next.CreatedAt = prev.ID, prev.UserID, prev.CreatedAt
		next.NormalizeCollections()
		next.UpdatedAt = touch(s.now(), prev.UpdatedAt)

		rec.Items[i] = next
		out, found = next, true
		return true
	})
	return out, found, err
}

// DeleteItem removes one item. Unknown ids are ignored.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	return s.BulkDeleteItems(ctx, []string{id})
}

// BulkDeleteItems removes every listed item in a single write.
func (s *Store) BulkDeleteItems(ctx context.Context, ids []string) error {
	set := toSet(ids)
	return s.mutate(ctx, func(rec *record) bool {
		before := len(rec.Items)
		rec.Items = slices.DeleteFunc(rec.Items, func(it model.Item) bool {
			_, hit := set[it.ID]
			return hit
		})
		return len(rec.Items) != before
	})
}

// MoveItems reassigns every listed item in a single write. Moving to All
// means "no address".
func (s *Store) MoveItems(ctx context.Context, ids []string, target model.AddressFilter) error {
	set := toSet(ids)
	dest := target.TargetID()
	return s.mutate(ctx, func(rec *record) bool {
		now := s.now()
		changed := false
		for i := range rec.Items {
			if _, hit := set[rec.Items[i].ID]; !hit {
				continue
			}
			rec.Items[i].AddressID = dest
			rec.Items[i].UpdatedAt = touch(now, rec.Items[i].UpdatedAt)
			changed = true
		}
		return changed
	})
}

func indexItem(items []model.Item, id string) int {
	return slices.IndexFunc(items, func(it model.Item) bool { return it.ID == id })
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
