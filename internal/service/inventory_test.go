package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/notify"
	"github.com/sakif/stash/internal/query"
	"github.com/sakif/stash/internal/repository/memory"
	"github.com/sakif/stash/internal/store"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

type recordingNotifier struct {
	mu     sync.Mutex
	shares []notify.Share
	err    error
}

func (r *recordingNotifier) AddressShared(_ context.Context, s notify.Share) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shares = append(r.shares, s)
	return r.err
}

func (r *recordingNotifier) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.shares))
	for _, s := range r.shares {
		out = append(out, s.Recipient)
	}
	return out
}

func newTestInventory(t *testing.T) (*InventoryService, *memory.DB, *recordingNotifier) {
	t.Helper()
	db := memory.New()
	n := &recordingNotifier{}
	m := store.NewManager(db, discardLogger())
	return NewInventoryService(m.For("u1"), n, discardLogger()).WithOwnerEmail("owner@example.com"), db, n
}

func ptr[T any](v T) *T { return &v }

func requireFields(t *testing.T, err error, fields ...string) {
	t.Helper()
	require.ErrorIs(t, err, apperror.ErrValidation)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	for _, f := range fields {
		assert.Contains(t, appErr.Fields, f)
	}
}

// =========================================================================
// ITEM VALIDATION
// =========================================================================

func TestCreateItemValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    model.ItemInput
		field string
	}{
		{"blank name", model.ItemInput{Name: "   "}, "name"},
		{"long name", model.ItemInput{Name: string(make([]rune, 201))}, "name"},
		{"negative price", model.ItemInput{Name: "x", PurchasePriceCents: ptr[int64](-1)}, "purchasePriceCents"},
		{"bad date", model.ItemInput{Name: "x", PurchaseDate: "15/05/2023"}, "purchaseDate"},
		{"long currency", model.ItemInput{Name: "x", Currency: "EUROEUROS"}, "currency"},
		{"unknown address", model.ItemInput{Name: "x", AddressID: "nope"}, "addressId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db, _ := newTestInventory(t)
			_, err := svc.CreateItem(context.Background(), tt.in)
			requireFields(t, err, tt.field)
			assert.Zero(t, db.Writes(), "nothing may be persisted on validation failure")
		})
	}
}

func TestCreateItemReportsEveryField(t *testing.T) {
	svc, _, _ := newTestInventory(t)
	_, err := svc.CreateItem(context.Background(), model.ItemInput{
		Name:               "",
		PurchasePriceCents: ptr[int64](-5),
		PurchaseDate:       "yesterday",
	})
	requireFields(t, err, "name", "purchasePriceCents", "purchaseDate")
}

func TestCreateItemTrimsAndCleans(t *testing.T) {
	svc, _, _ := newTestInventory(t)
	ctx := context.Background()

	a, err := svc.CreateAddress(ctx, model.AddressInput{Label: "Home"})
	require.NoError(t, err)

	it, err := svc.CreateItem(ctx, model.ItemInput{
		Name:         "  Drill ",
		AddressID:    a.ID,
		PurchaseDate: "2023-05-15",
		Tags:         []string{" tools ", "", "power"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Drill", it.Name)
	assert.Equal(t, a.ID, it.AddressID)
	assert.Equal(t, []string{"tools", "power"}, it.Tags)
	assert.Equal(t, "u1", it.UserID)
}

func TestUpdateItemValidation(t *testing.T) {
	svc, db, _ := newTestInventory(t)
	ctx := context.Background()

	it, err := svc.CreateItem(ctx, model.ItemInput{Name: "Lamp"})
	require.NoError(t, err)
	writes := db.Writes()

	_, _, err = svc.UpdateItem(ctx, it.ID, model.ItemPatch{Name: ptr(" ")})
	requireFields(t, err, "name")

	_, _, err = svc.UpdateItem(ctx, it.ID, model.ItemPatch{PurchasePriceCents: model.Some[int64](-1)})
	requireFields(t, err, "purchasePriceCents")

	_, _, err = svc.UpdateItem(ctx, it.ID, model.ItemPatch{AddressID: model.Some("ghost")})
	requireFields(t, err, "addressId")

	assert.Equal(t, writes, db.Writes())

	// Clearing optional fields is always allowed.
	got, ok, err := svc.UpdateItem(ctx, it.ID, model.ItemPatch{
		AddressID:          model.Clear[string](),
		PurchasePriceCents: model.Clear[int64](),
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Unlocated())
	assert.False(t, got.HasPrice())
}

func TestUpdateItemNotFound(t *testing.T) {
	svc, _, _ := newTestInventory(t)
	_, ok, err := svc.UpdateItem(context.Background(), "missing", model.ItemPatch{Name: ptr("x")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMoveItemsRejectsUnknownTarget(t *testing.T) {
	svc, db, _ := newTestInventory(t)
	ctx := context.Background()

	it, err := svc.CreateItem(ctx, model.ItemInput{Name: "Box"})
	require.NoError(t, err)
	writes := db.Writes()

	err = svc.MoveItems(ctx, []string{it.ID}, model.AtAddress("ghost"))
	requireFields(t, err, "addressId")
	assert.Equal(t, writes, db.Writes())

	require.NoError(t, svc.MoveItems(ctx, nil, model.AtAddress("ghost")), "empty selection is a no-op")
}

// =========================================================================
// ADDRESSES AND SHARING
// =========================================================================

func TestCreateAddressValidation(t *testing.T) {
	svc, db, _ := newTestInventory(t)

	_, err := svc.CreateAddress(context.Background(), model.AddressInput{
		Label:      string(make([]rune, 101)),
		SharedWith: []string{"not-an-email"},
	})
	requireFields(t, err, "label", "sharedWith[0]")
	assert.Zero(t, db.Writes())
}

func TestShareNotifiesOnlyNewRecipients(t *testing.T) {
	svc, _, n := newTestInventory(t)
	ctx := context.Background()

	a, err := svc.CreateAddress(ctx, model.AddressInput{Label: "Cabin", SharedWith: []string{"first@example.com"}})
	require.NoError(t, err)

	_, ok, err := svc.ShareAddress(ctx, a.ID, " Second@Example.com ")
	require.NoError(t, err)
	require.True(t, ok)

	// Already shared: stored once, no second notification.
	got, _, err := svc.ShareAddress(ctx, a.ID, "second@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"first@example.com", "second@example.com"}, got.SharedWith)

	assert.Equal(t, []string{"first@example.com", "second@example.com"}, n.recipients())
	assert.Equal(t, "owner@example.com", n.shares[0].OwnerEmail)
	assert.Equal(t, "Cabin", n.shares[0].AddressLabel)
}

func TestShareValidation(t *testing.T) {
	svc, _, n := newTestInventory(t)
	ctx := context.Background()

	a, err := svc.CreateAddress(ctx, model.AddressInput{Label: "Cabin"})
	require.NoError(t, err)

	_, _, err = svc.ShareAddress(ctx, a.ID, "nope")
	requireFields(t, err, "email")

	_, ok, err := svc.ShareAddress(ctx, "missing", "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, n.recipients())
}

func TestNotificationFailureDoesNotFailShare(t *testing.T) {
	svc, _, n := newTestInventory(t)
	n.err = errors.New("smtp down")
	ctx := context.Background()

	a, err := svc.CreateAddress(ctx, model.AddressInput{Label: "Cabin"})
	require.NoError(t, err)

	got, ok, err := svc.ShareAddress(ctx, a.ID, "x@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"x@example.com"}, got.SharedWith)
}

func TestUpdateAddressBlankLabel(t *testing.T) {
	svc, _, n := newTestInventory(t)
	ctx := context.Background()

	a, err := svc.CreateAddress(ctx, model.AddressInput{Label: "Garage"})
	require.NoError(t, err)

	got, ok, err := svc.UpdateAddress(ctx, a.ID, model.AddressPatch{
		Label:      ptr("  "),
		SharedWith: &[]string{"A@example.com", "a@example.com"},
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.DefaultAddressLabel, got.Label)
	assert.Equal(t, []string{"a@example.com"}, got.SharedWith)
	assert.Equal(t, []string{"a@example.com"}, n.recipients())
}

// =========================================================================
// VIEW
// =========================================================================

func TestViewBoundsSpanTheWholeSelection(t *testing.T) {
	svc, _, _ := newTestInventory(t)
	ctx := context.Background()

	for _, p := range []int64{100, 500, 900} {
		_, err := svc.CreateItem(ctx, model.ItemInput{Name: "item", PurchasePriceCents: ptr(p)})
		require.NoError(t, err)
	}
	_, err := svc.CreateItem(ctx, model.ItemInput{Name: "unpriced"})
	require.NoError(t, err)

	v, err := svc.View(ctx, ViewQuery{
		ItemQuery: model.ItemQuery{Page: 1, PageSize: 2},
		MinPrice:  ptr[int64](0),
		MaxPrice:  ptr[int64](600),
		Sort:      query.SortPriceAsc,
	})
	require.NoError(t, err)

	assert.Equal(t, query.Bounds{HasPrices: true, Min: 100, Max: 900}, v.Bounds)
	assert.Equal(t, int64(100), *v.MinPrice, "min is clamped into the bounds")
	assert.Equal(t, int64(600), *v.MaxPrice)
	assert.Equal(t, 4, v.Total)
	for _, it := range v.Items {
		require.True(t, it.HasPrice(), "narrowed range hides unpriced items")
		assert.LessOrEqual(t, *it.PurchasePriceCents, int64(600))
	}
}

func TestViewWithoutPricesDropsRange(t *testing.T) {
	svc, _, _ := newTestInventory(t)
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, model.ItemInput{Name: "a"})
	require.NoError(t, err)

	v, err := svc.View(ctx, ViewQuery{MinPrice: ptr[int64](10)})
	require.NoError(t, err)
	assert.False(t, v.Bounds.HasPrices)
	assert.Nil(t, v.MinPrice)
	assert.Len(t, v.Items, 1)
}
