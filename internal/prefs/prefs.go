// Package prefs persists the user-facing view settings: view mode, sort,
// tag filter and price range. Each setting is its own key so one can change
// without rewriting the others.
package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/stash/internal/query"
	"github.com/sakif/stash/internal/repository"
)

const (
	keyViewMode = "view_mode_v1"
	keySort     = "sort_v1"
	keyTag      = "tag_v1"
	keyMinPrice = "min_price_v1"
	keyMaxPrice = "max_price_v1"
)

// ViewMode is how the item list is laid out.
type ViewMode string

const (
	ViewList    ViewMode = "list"
	ViewGrid    ViewMode = "grid"
	ViewColumn4 ViewMode = "column4"
)

// ParseViewMode reports false for anything but the three modes.
func ParseViewMode(s string) (ViewMode, bool) {
	switch m := ViewMode(s); m {
	case ViewList, ViewGrid, ViewColumn4:
		return m, true
	}
	return ViewList, false
}

// Preferences is the full set. Nil prices mean "no bound chosen".
type Preferences struct {
	ViewMode ViewMode      `json:"viewMode"`
	Sort     query.SortKey `json:"sort"`
	Tag      string        `json:"tag"`
	MinPrice *int64        `json:"minPrice"`
	MaxPrice *int64        `json:"maxPrice"`
}

// Defaults are used for every missing or invalid stored value.
func Defaults() Preferences {
	return Preferences{ViewMode: ViewList, Sort: query.DefaultSort}
}

// Normalize replaces invalid values with their defaults.
func (p Preferences) Normalize() Preferences {
	p.ViewMode, _ = ParseViewMode(string(p.ViewMode))
	p.Sort, _ = query.ParseSortKey(string(p.Sort))
	if p.MinPrice != nil && *p.MinPrice < 0 {
		p.MinPrice = nil
	}
	if p.MaxPrice != nil && *p.MaxPrice < 0 {
		p.MaxPrice = nil
	}
	return p
}

// Storage is what the state controller needs. Store implements it over a
// KVStore; the API client implements it over /preferences.
type Storage interface {
	Load(ctx context.Context) (Preferences, error)
	Save(ctx context.Context, p Preferences) error
}

var _ Storage = (*Store)(nil)

// Store keeps preferences in a KVStore under an optional key prefix.
type Store struct {
	kv     repository.KVStore
	prefix string
	logger *slog.Logger
}

// New stores bare keys, as the local CLI does.
func New(kv repository.KVStore, logger *slog.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

// ForOwner namespaces keys per owner ("prefs:<owner>:sort_v1"), as the
// server does for every account sharing one database.
func ForOwner(kv repository.KVStore, owner string, logger *slog.Logger) *Store {
	return &Store{kv: kv, prefix: "prefs:" + owner + ":", logger: logger}
}

// Load reads every key. Missing or unparsable values fall back to defaults;
// only storage errors are returned.
func (s *Store) Load(ctx context.Context) (Preferences, error) {
	p := Defaults()

	if v, ok, err := s.get(ctx, keyViewMode); err != nil {
		return p, err
	} else if ok {
		p.ViewMode, _ = ParseViewMode(v)
	}
	if v, ok, err := s.get(ctx, keySort); err != nil {
		return p, err
	} else if ok {
		p.Sort, _ = query.ParseSortKey(v)
	}
	if v, ok, err := s.get(ctx, keyTag); err != nil {
		return p, err
	} else if ok {
		p.Tag = v
	}

	var err error
	if p.MinPrice, err = s.getPrice(ctx, keyMinPrice); err != nil {
		return p, err
	}
	if p.MaxPrice, err = s.getPrice(ctx, keyMaxPrice); err != nil {
		return p, err
	}
	return p, nil
}

// Save writes every key of p after normalizing it.
func (s *Store) Save(ctx context.Context, p Preferences) error {
	p = p.Normalize()
	for _, step := range []func() error{
		func() error { return s.SetViewMode(ctx, p.ViewMode) },
		func() error { return s.SetSort(ctx, p.Sort) },
		func() error { return s.SetTag(ctx, p.Tag) },
		func() error { return s.SetMinPrice(ctx, p.MinPrice) },
		func() error { return s.SetMaxPrice(ctx, p.MaxPrice) },
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SetViewMode(ctx context.Context, m ViewMode) error {
	return s.set(ctx, keyViewMode, string(m))
}

func (s *Store) SetSort(ctx context.Context, k query.SortKey) error {
	return s.set(ctx, keySort, string(k))
}

func (s *Store) SetTag(ctx context.Context, tag string) error {
	return s.set(ctx, keyTag, tag)
}

// SetMinPrice deletes the key when cents is nil.
func (s *Store) SetMinPrice(ctx context.Context, cents *int64) error {
	return s.setPrice(ctx, keyMinPrice, cents)
}

// SetMaxPrice deletes the key when cents is nil.
func (s *Store) SetMaxPrice(ctx context.Context, cents *int64) error {
	return s.setPrice(ctx, keyMaxPrice, cents)
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.kv.Get(ctx, s.prefix+key)
	if err != nil {
		return "", false, fmt.Errorf("prefs: reading %s: %w", key, err)
	}
	return string(raw), ok, nil
}

func (s *Store) getPrice(ctx context.Context, key string) (*int64, error) {
	v, ok, err := s.get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		s.logger.Warn("ignoring invalid stored price preference",
			slog.String("key", s.prefix+key),
			slog.String("value", v),
		)
		return nil, nil
	}
	return &n, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	if err := s.kv.Set(ctx, s.prefix+key, []byte(value)); err != nil {
		return fmt.Errorf("prefs: writing %s: %w", key, err)
	}
	return nil
}

func (s *Store) setPrice(ctx context.Context, key string, cents *int64) error {
	if cents == nil {
		if err := s.kv.Delete(ctx, s.prefix+key); err != nil {
			return fmt.Errorf("prefs: deleting %s: %w", key, err)
		}
		return nil
	}
	return s.set(ctx, key, strconv.FormatInt(*cents, 10))
}
