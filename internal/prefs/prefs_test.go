package prefs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/stash/internal/query"
	"github.com/sakif/stash/internal/repository/memory"
)

func newTestStore(t *testing.T) (*Store, *memory.DB) {
	t.Helper()
	db := memory.New()
	return New(db, slog.New(slog.NewTextHandler(io.Discard, nil))), db
}

func TestLoadDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	p, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), p)
}

func TestSaveAndLoad(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	lo, hi := int64(500), int64(2500)
	want := Preferences{ViewMode: ViewGrid, Sort: query.SortPriceDesc, Tag: "tools", MinPrice: &lo, MaxPrice: &hi}
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, ok, _ := db.Get(ctx, "min_price_v1")
	require.True(t, ok)
	assert.Equal(t, "500", string(raw))
}

func TestNilPriceDeletesKey(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	v := int64(100)
	require.NoError(t, s.SetMaxPrice(ctx, &v))
	require.NoError(t, s.SetMaxPrice(ctx, nil))

	_, ok, err := db.Get(ctx, "max_price_v1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidStoredValuesFallBack(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, "view_mode_v1", []byte("carousel")))
	require.NoError(t, db.Set(ctx, "sort_v1", []byte("random")))
	require.NoError(t, db.Set(ctx, "min_price_v1", []byte("cheap")))
	require.NoError(t, db.Set(ctx, "max_price_v1", []byte("-4")))

	p, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), p)
}

func TestForOwnerNamespacesKeys(t *testing.T) {
	db := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	a := ForOwner(db, "alice", logger)
	b := ForOwner(db, "bob", logger)
	require.NoError(t, a.SetViewMode(ctx, ViewColumn4))

	_, ok, _ := db.Get(ctx, "prefs:alice:view_mode_v1")
	assert.True(t, ok)

	pb, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, ViewList, pb.ViewMode)
}

func TestNormalize(t *testing.T) {
	neg := int64(-1)
	p := Preferences{ViewMode: "x", Sort: "y", MinPrice: &neg}.Normalize()
	assert.Equal(t, ViewList, p.ViewMode)
	assert.Equal(t, query.DefaultSort, p.Sort)
	assert.Nil(t, p.MinPrice)
}
