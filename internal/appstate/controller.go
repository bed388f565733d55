// Package appstate holds what a user is looking at (selected address,
// search, page, sort, filters, multi-selection) and turns user actions into
// Inventory calls followed by a refresh.
//
// A Controller is not safe for concurrent use; the CLI drives it from one
// goroutine.
package appstate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/prefs"
	"github.com/sakif/stash/internal/query"
	"github.com/sakif/stash/internal/service"
)

const (
	// PageSize is the number of items per page.
	PageSize = 50

	// scanPageSize is used when walking a whole collection.
	scanPageSize = service.MaxPageSize
)

type Controller struct {
	inv    service.Inventory
	store  prefs.Storage
	logger *slog.Logger

	selection model.AddressFilter
	q         string
	page      int
	prefs     prefs.Preferences
	selected  map[string]struct{}

	addresses []model.Address
	items     []model.Item
	total     int
	bounds    query.Bounds
}

func New(inv service.Inventory, store prefs.Storage, logger *slog.Logger) *Controller {
	return &Controller{
		inv:      inv,
		store:    store,
		logger:   logger,
		page:     1,
		prefs:    prefs.Defaults(),
		selected: make(map[string]struct{}),
		bounds:   query.ComputeBounds(nil),
	}
}

// Load hydrates preferences and addresses, then the first page of items.
func (c *Controller) Load(ctx context.Context) error {
	p, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading preferences: %w", err)
	}
	c.prefs = p.Normalize()

	if err := c.loadAddresses(ctx); err != nil {
		return err
	}
	return c.reselect(ctx)
}

// =========================================================================
// STATE ACCESSORS
// =========================================================================

func (c *Controller) Selection() model.AddressFilter { return c.selection }
func (c *Controller) Query() string { return c.q }
func (c *Controller) Page() int { return c.page }
func (c *Controller) Total() int { return c.total }
func (c *Controller) Bounds() query.Bounds { return c.bounds }
func (c *Controller) Preferences() prefs.Preferences { return c.prefs }
func (c *Controller) Addresses() []model.Address { return c.addresses }
func (c *Controller) Items() []model.Item { return c.items }
func (c *Controller) SelectedCount() int { return len(c.selected) }

func (c *Controller) IsSelected(id string) bool {
	_, ok := c.selected[id]
	return ok
}

// PageCount is at least 1.
func (c *Controller) PageCount() int {
	return max(1, (c.total+PageSize-1)/PageSize)
}

// Visible is the current page after price, tag and sort derivation.
func (c *Controller) Visible() []model.Item {
	return query.Derive(c.items, query.Options{
		Bounds:   &c.bounds,
		MinPrice: c.prefs.MinPrice,
		MaxPrice: c.prefs.MaxPrice,
		Tag:      c.prefs.Tag,
		Sort:     c.prefs.Sort,
	})
}

// Heading names the current selection.
func (c *Controller) Heading() string {
	switch {
	case c.selection.IsAll():
		return "All items"
	case c.selection.IsUnlocated():
		return "Unlocated items"
	}
	id, _ := c.selection.AddressID()
	for _, a := range c.addresses {
		if a.ID == id {
			return a.Label
		}
	}
	return "Address"
}

// Selected returns the multi-selected ids in visible order.
func (c *Controller) Selected() []string {
	out := make([]string, 0, len(c.selected))
	for _, it := range c.items {
		if _, ok := c.selected[it.ID]; ok {
			out = append(out, it.ID)
		}
	}
	return out
}

// =========================================================================
// NAVIGATION AND FILTERS
// =========================================================================

// SelectAddress switches the selection, resets to page 1 and recomputes
// the price bounds for the new selection.
func (c *Controller) SelectAddress(ctx context.Context, f model.AddressFilter) error {
	c.selection = f
	c.page = 1
	return c.reselect(ctx)
}

// SetQuery changes the search text and resets to page 1.
func (c *Controller) SetQuery(ctx context.Context, q string) error {
	c.q = strings.TrimSpace(q)
	c.page = 1
	return c.refresh(ctx)
}

func (c *Controller) SetPage(ctx context.Context, page int) error {
	c.page = min(max(1, page), c.PageCount())
	return c.refresh(ctx)
}

func (c *Controller) SetSort(ctx context.Context, key query.SortKey) error {
	c.prefs.Sort = key
	return c.savePrefs(ctx)
}

func (c *Controller) SetTagFilter(ctx context.Context, tag string) error {
	c.prefs.Tag = strings.TrimSpace(tag)
	return c.savePrefs(ctx)
}

// SetPriceRange clamps the range into the current bounds and persists it.
func (c *Controller) SetPriceRange(ctx context.Context, lo, hi *int64) error {
	c.prefs.MinPrice, c.prefs.MaxPrice = c.bounds.Clamp(lo, hi)
	return c.savePrefs(ctx)
}

func (c *Controller) SetView(ctx context.Context, mode prefs.ViewMode) error {
	c.prefs.ViewMode = mode
	return c.savePrefs(ctx)
}

// =========================================================================
// MULTI-SELECT
// =========================================================================

func (c *Controller) Toggle(id string) {
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
		return
	}
	c.selected[id] = struct{}{}
}

// SelectAllVisible selects every item that passes the current derivation.
func (c *Controller) SelectAllVisible() {
	for _, it := range c.Visible() {
		c.selected[it.ID] = struct{}{}
	}
}

func (c *Controller) ClearSelection() {
	clear(c.selected)
}

// BulkDelete removes every selected item in one write.
func (c *Controller) BulkDelete(ctx context.Context) error {
	ids := c.Selected()
	if len(ids) == 0 {
		return nil
	}
	if err := c.inv.BulkDeleteItems(ctx, ids); err != nil {
		return err
	}
	return c.reselect(ctx)
}

// BulkMove reassigns every selected item to target in one write.
func (c *Controller) BulkMove(ctx context.Context, target model.AddressFilter) error {
	ids := c.Selected()
	if len(ids) == 0 {
		return nil
	}
	if err := c.inv.MoveItems(ctx, ids, target); err != nil {
		return err
	}
	return c.reselect(ctx)
}

// =========================================================================
// ADDRESSES AND ITEMS
// =========================================================================

func (c *Controller) CreateAddress(ctx context.Context, in model.AddressInput) (model.Address, error) {
	a, err := c.inv.CreateAddress(ctx, in)
	if err != nil {
		return model.Address{}, err
	}
	return a, c.loadAddresses(ctx)
}

// RenameAddress reports false when the address no longer exists.
func (c *Controller) RenameAddress(ctx context.Context, id, label string) (bool, error) {
	_, ok, err := c.inv.UpdateAddress(ctx, id, model.AddressPatch{Label: &label})
	if err != nil || !ok {
		return ok, err
	}
	return true, c.loadAddresses(ctx)
}

// DeleteAddress removes the address. Its items become Unlocated. When it
// was the current selection, the selection falls back to All.
func (c *Controller) DeleteAddress(ctx context.Context, id string) error {
	if err := c.inv.DeleteAddress(ctx, id); err != nil {
		return err
	}
	if cur, ok := c.selection.AddressID(); ok && cur == id {
		c.selection = model.AllAddresses()
		c.page = 1
	}
	if err := c.loadAddresses(ctx); err != nil {
		return err
	}
	return c.reselect(ctx)
}

// CreateItem files the item under the selected address when the input
// names none.
func (c *Controller) CreateItem(ctx context.Context, in model.ItemInput) (model.Item, error) {
	if in.AddressID == "" {
		in.AddressID = c.selection.TargetID()
	}
	it, err := c.inv.CreateItem(ctx, in)
	if err != nil {
		return model.Item{}, err
	}
	return it, c.reselect(ctx)
}

func (c *Controller) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) (model.Item, bool, error) {
	it, ok, err := c.inv.UpdateItem(ctx, id, patch)
	if err != nil || !ok {
		return it, ok, err
	}
	return it, true, c.reselect(ctx)
}

func (c *Controller) DeleteItem(ctx context.Context, id string) error {
	if err := c.inv.DeleteItem(ctx, id); err != nil {
		return err
	}
	return c.reselect(ctx)
}

// =========================================================================
// REFRESH
// =========================================================================

// refresh reloads the current page and clears the multi-selection.
func (c *Controller) refresh(ctx context.Context) error {
	page, err := c.inv.ListItems(ctx, model.ItemQuery{
		Q:        c.q,
		Address:  c.selection,
		Page:     c.page,
		PageSize: PageSize,
	})
	if err != nil {
		return fmt.Errorf("listing items: %w", err)
	}
	c.items = page.Items
	c.total = page.Total
	c.ClearSelection()
	return nil
}

// reselect recomputes the bounds of the whole selection, clamps the stored
// price range into them and refreshes the page.
func (c *Controller) reselect(ctx context.Context) error {
	all, err := c.scanSelection(ctx)
	if err != nil {
		return err
	}
	c.bounds = query.ComputeBounds(all)

	lo, hi := c.bounds.Clamp(c.prefs.MinPrice, c.prefs.MaxPrice)
	if !samePrice(lo, c.prefs.MinPrice) || !samePrice(hi, c.prefs.MaxPrice) {
		c.prefs.MinPrice, c.prefs.MaxPrice = lo, hi
		if err := c.savePrefs(ctx); err != nil {
			return err
		}
	}
	return c.refresh(ctx)
}

// scanSelection pages through every item of the selection, ignoring the
// search text.
func (c *Controller) scanSelection(ctx context.Context) ([]model.Item, error) {
	var all []model.Item
	for page := 1; ; page++ {
		p, err := c.inv.ListItems(ctx, model.ItemQuery{Address: c.selection, Page: page, PageSize: scanPageSize})
		if err != nil {
			return nil, fmt.Errorf("scanning selection: %w", err)
		}
		all = append(all, p.Items...)
		if len(p.Items) == 0 || len(all) >= p.Total {
			return all, nil
		}
	}
}

func (c *Controller) loadAddresses(ctx context.Context) error {
	var all []model.Address
	for page := 1; ; page++ {
		p, err := c.inv.ListAddresses(ctx, page, scanPageSize)
		if err != nil {
			return fmt.Errorf("listing addresses: %w", err)
		}
		all = append(all, p.Items...)
		if len(p.Items) == 0 || len(all) >= p.Total {
			break
		}
	}
	c.addresses = all
	return nil
}

func (c *Controller) savePrefs(ctx context.Context) error {
	c.prefs = c.prefs.Normalize()
	if err := c.store.Save(ctx, c.prefs); err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

func samePrice(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
