// Package store keeps each owner's addresses and items in one JSON record
// on top of a repository.KVStore.
//
// Every operation is a read-modify-write of the whole record:
//
//	load → apply one logical change → save
//
// so a change is either fully persisted or not at all. Within a process a
// per-record mutex makes operations on the same record run one at a time.
// Two processes writing the same record race with last-write-wins.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/stash/internal/idgen"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/repository"
)

const (
	// GuestKey holds the record used before anyone signs in.
	GuestKey = "guest_data_v1"
	// userKeyPrefix + userID holds a signed-in user's record.
	userKeyPrefix = "inventory_v1:"

	DefaultPageSize = 50
)

// record is the durable document.
type record struct {
	Addresses []model.Address `json:"addresses"`
	Items     []model.Item    `json:"items"`
}

// Manager hands out Stores that share one KV backend and one set of locks.
// Build it once at startup.
type Manager struct {
	kv     repository.KVStore
	logger *slog.Logger
	newID  idgen.Generator
	clock  func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option customises a Manager.
type Option func(*Manager)

// WithIDGenerator replaces idgen.New, mostly for deterministic tests.
func WithIDGenerator(g idgen.Generator) Option {
	return func(m *Manager) { m.newID = g }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.clock = now }
}

func NewManager(kv repository.KVStore, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		kv:     kv,
		logger: logger,
		newID:  idgen.New,
		clock:  time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Guest returns the store for anonymous use.
func (m *Manager) Guest() *Store {
	return m.store(GuestKey, model.GuestUserID)
}

// For returns the store of a signed-in user.
func (m *Manager) For(userID string) *Store {
	if userID == "" || userID == model.GuestUserID {
		return m.Guest()
	}
	return m.store(userKeyPrefix+userID, userID)
}

func (m *Manager) store(key, owner string) *Store {
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	m.mu.Unlock()

	return &Store{m: m, key: key, owner: owner, lock: lock}
}

// Store is one owner's inventory. It is cheap to create; Stores for the
// same owner share a lock.
type Store struct {
	m     *Manager
	key   string
	owner string
	lock  *sync.Mutex
}

// Owner is the user id stamped on new records.
func (s *Store) Owner() string { return s.owner }

// load reads the record. A missing key is an empty record; so is one that
// does not decode, after a warning. Only KV errors are returned.
func (s *Store) load(ctx context.Context) (record, error) {
	raw, ok, err := s.m.kv.Get(ctx, s.key)
	if err != nil {
		return record{}, fmt.Errorf("store: loading %s: %w", s.key, err)
	}

	var rec record
	if ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.m.logger.Warn("discarding undecodable inventory record",
				slog.String("key", s.key),
				slog.Int("bytes", len(raw)),
				slog.String("error", err.Error()),
			)
			rec = record{}
		}
	}

	if rec.Addresses == nil {
		rec.Addresses = []model.Address{}
	}
	if rec.Items == nil {
		rec.Items = []model.Item{}
	}
	for i := range rec.Addresses {
		if rec.Addresses[i].SharedWith == nil {
			rec.Addresses[i].SharedWith = []string{}
		}
	}
	for i := range rec.Items {
		rec.Items[i].NormalizeCollections()
	}
	return rec, nil
}

func (s *Store) save(ctx context.Context, rec record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encoding %s: %w", s.key, err)
	}
	if err := s.m.kv.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("store: saving %s: %w", s.key, err)
	}
	return nil
}

// read runs fn on a snapshot under the record lock.
func (s *Store) read(ctx context.Context, fn func(rec *record)) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	rec, err := s.load(ctx)
	if err != nil {
		return err
	}
	fn(&rec)
	return nil
}

// mutate runs fn under the record lock and saves the record if fn reports
// a change. fn must not keep references to rec.
func (s *Store) mutate(ctx context.Context, fn func(rec *record) (changed bool)) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	rec, err := s.load(ctx)
	if err != nil {
		return err
	}
	if !fn(&rec) {
		return nil
	}
	return s.save(ctx, rec)
}

// now returns the current time in UTC at millisecond precision, the
// resolution of the JSON timestamps.
func (s *Store) now() time.Time {
	return s.m.clock().UTC().Truncate(time.Millisecond)
}

// touch returns a timestamp strictly after prev.
func touch(now, prev time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Millisecond)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// Reset replaces the record with empty collections.
func (s *Store) Reset(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.save(ctx, record{Addresses: []model.Address{}, Items: []model.Item{}})
}
