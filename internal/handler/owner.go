package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/auth"
	"github.com/sakif/stash/internal/notify"
	"github.com/sakif/stash/internal/prefs"
	"github.com/sakif/stash/internal/repository"
	"github.com/sakif/stash/internal/service"
	"github.com/sakif/stash/internal/store"
)

// Owners turns a request into the inventory and preferences it may touch:
// the signed-in user's record, or the guest record for anonymous callers
// when guests are allowed.
type Owners struct {
	stores     *store.Manager
	kv         repository.KVStore
	users      repository.UserRepository
	notifier   notify.Notifier
	allowGuest bool
	logger     *slog.Logger
}

func NewOwners(
	stores *store.Manager,
	kv repository.KVStore,
	users repository.UserRepository,
	notifier notify.Notifier,
	allowGuest bool,
	logger *slog.Logger,
) *Owners {
	return &Owners{
		stores:     stores,
		kv:         kv,
		users:      users,
		notifier:   notifier,
		allowGuest: allowGuest,
		logger:     logger,
	}
}

// Scope is one request's view of the data.
type Scope struct {
	Inventory *service.InventoryService
	Prefs     *prefs.Store
}

// Resolve requires OptionalAuth (or RequireAuth) to have run first.
func (o *Owners) Resolve(r *http.Request) (Scope, error) {
	ctx := r.Context()
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		if !o.allowGuest {
			return Scope{}, apperror.Unauthorized("valid authentication required")
		}
		return o.scope(o.stores.Guest(), ""), nil
	}

	st := o.stores.For(userID)
	return o.scope(st, o.email(ctx, userID)), nil
}

func (o *Owners) scope(st *store.Store, email string) Scope {
	inv := service.NewInventoryService(st, o.notifier, o.logger)
	if email != "" {
		inv = inv.WithOwnerEmail(email)
	}
	return Scope{
		Inventory: inv,
		Prefs:     prefs.ForOwner(o.kv, st.Owner(), o.logger),
	}
}

// email is only used to name the sharer in notifications, so a failed
// lookup degrades to an anonymous sharer.
func (o *Owners) email(ctx context.Context, userID string) string {
	user, err := o.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			o.logger.Warn("owner lookup failed",
				slog.String("userID", userID),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}
	return user.Email
}
