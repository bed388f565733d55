// Package session tracks who is signed in on the client side.
//
// A Holder asks the server "who am I?" once, in the background, as soon as
// it is created. Until that answer arrives Loading reports true. A failed
// probe counts as "nobody".
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakif/stash/internal/model"
)

// AuthAPI is the part of the API client the holder uses.
type AuthAPI interface {
	Me(ctx context.Context) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
	Signup(ctx context.Context, email, password string) (*model.User, error)
	Logout(ctx context.Context) error
}

type Holder struct {
	api    AuthAPI
	logger *slog.Logger

	mu      sync.RWMutex
	user    *model.User
	loading bool
	acted   bool // a login, signup or logout has set user
	ready   chan struct{}
}

// New starts the probe. It stops early if ctx is cancelled.
func New(ctx context.Context, api AuthAPI, logger *slog.Logger) *Holder {
	h := &Holder{api: api, logger: logger, loading: true, ready: make(chan struct{})}
	go h.probe(ctx)
	return h
}

func (h *Holder) probe(ctx context.Context) {
	u, err := h.api.Me(ctx)
	if err != nil {
		h.logger.Debug("session probe failed", slog.String("error", err.Error()))
		u = nil
	}

	h.mu.Lock()
	// A login or logout that finished first wins over the probe.
	if !h.acted {
		h.user = u
	}
	h.loading = false
	h.mu.Unlock()
	close(h.ready)
}

// Ready is closed once the probe has settled.
func (h *Holder) Ready() <-chan struct{} { return h.ready }

// Wait blocks until the probe settles or ctx ends.
func (h *Holder) Wait(ctx context.Context) error {
	select {
	case <-h.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Holder) Loading() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loading
}

// User is nil when nobody is signed in.
func (h *Holder) User() *model.User {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user
}

// Login sets the user on success. On failure the previous user is kept and
// the structured API error is returned.
func (h *Holder) Login(ctx context.Context, email, password string) (*model.User, error) {
	u, err := h.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	h.set(u)
	return u, nil
}

// Signup behaves like Login.
func (h *Holder) Signup(ctx context.Context, email, password string) (*model.User, error) {
	u, err := h.api.Signup(ctx, email, password)
	if err != nil {
		return nil, err
	}
	h.set(u)
	return u, nil
}

// Logout always clears the local user. A remote failure is logged and
// returned.
func (h *Holder) Logout(ctx context.Context) error {
	err := h.api.Logout(ctx)
	h.set(nil)
	if err != nil {
		h.logger.Warn("remote logout failed", slog.String("error", err.Error()))
	}
	return err
}

func (h *Holder) set(u *model.User) {
	h.mu.Lock()
	h.user = u
	h.acted = true
	h.mu.Unlock()
}
