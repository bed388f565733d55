// Package service holds the business rules that sit between transports
// (HTTP handlers, the CLI) and storage:
//
//	Handler / CLI → Service (validation, notifications) → Store → KVStore
//
// Services take and return model types, never HTTP types, and report rule
// violations as *apperror.AppError so each transport can map them.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/notify"
	"github.com/sakif/stash/internal/query"
	"github.com/sakif/stash/internal/store"
)

const (
	MaxItemNameLength     = 200
	MaxDescriptionLength  = 2000
	MaxCurrencyLength     = 8
	MaxAddressLabelLength = 100

	// MaxPageSize caps pageSize on list calls.
	MaxPageSize = 200
)

// Inventory is the operation set shared by the local store, the validating
// service and the remote API client. The CLI and the state controller only
// see this interface.
//
// Get/Update/Share/Unshare report a missing record with ok == false.
type Inventory interface {
	ListAddresses(ctx context.Context, page, pageSize int) (model.Page[model.Address], error)
	GetAddress(ctx context.Context, id string) (model.Address, bool, error)
	CreateAddress(ctx context.Context, in model.AddressInput) (model.Address, error)
	UpdateAddress(ctx context.Context, id string, patch model.AddressPatch) (model.Address, bool, error)
	ShareAddress(ctx context.Context, id, email string) (model.Address, bool, error)
	UnshareAddress(ctx context.Context, id, email string) (model.Address, bool, error)
	DeleteAddress(ctx context.Context, id string) error

	ListItems(ctx context.Context, q model.ItemQuery) (model.Page[model.Item], error)
	GetItem(ctx context.Context, id string) (model.Item, bool, error)
	CreateItem(ctx context.Context, in model.ItemInput) (model.Item, error)
	UpdateItem(ctx context.Context, id string, patch model.ItemPatch) (model.Item, bool, error)
	DeleteItem(ctx context.Context, id string) error
	BulkDeleteItems(ctx context.Context, ids []string) error
	MoveItems(ctx context.Context, ids []string, target model.AddressFilter) error
}

var (
	_ Inventory = (*store.Store)(nil)
	_ Inventory = (*InventoryService)(nil)
)

// InventoryService validates input before it reaches one owner's Store and
// sends share notifications. Nothing is written when validation fails.
type InventoryService struct {
	store      *store.Store
	notifier   notify.Notifier
	logger     *slog.Logger
	ownerEmail string
}

func NewInventoryService(s *store.Store, n notify.Notifier, logger *slog.Logger) *InventoryService {
	if n == nil {
		n = notify.Discard{}
	}
	return &InventoryService{store: s, notifier: n, logger: logger}
}

// WithOwnerEmail returns a copy that signs share notifications with email.
func (s *InventoryService) WithOwnerEmail(email string) *InventoryService {
	c := *s
	c.ownerEmail = email
	return &c
}

// Store exposes the wrapped store for callers that need unvalidated access
// (seeding, bounds over a whole selection).
func (s *InventoryService) Store() *store.Store { return s.store }

// =========================================================================
// ADDRESSES
// =========================================================================

func (s *InventoryService) ListAddresses(ctx context.Context, page, pageSize int) (model.Page[model.Address], error) {
	return s.store.ListAddresses(ctx, page, min(pageSize, MaxPageSize))
}

func (s *InventoryService) GetAddress(ctx context.Context, id string) (model.Address, bool, error) {
	return s.store.GetAddress(ctx, id)
}

func (s *InventoryService) CreateAddress(ctx context.Context, in model.AddressInput) (model.Address, error) {
	in.Label = strings.TrimSpace(in.Label)
	in.SharedWith = model.NormalizeEmails(in.SharedWith)
	in.UserID = ""

	if err := check(in, nil); err != nil {
		return model.Address{}, err
	}

	a, err := s.store.CreateAddress(ctx, in)
	if err != nil {
		return model.Address{}, fmt.Errorf("creating address: %w", err)
	}
	s.logger.Info("address created", slog.String("id", a.ID), slog.String("owner", a.UserID))

	s.notifyShares(ctx, a, a.SharedWith)
	return a, nil
}

func (s *InventoryService) UpdateAddress(ctx context.Context, id string, patch model.AddressPatch) (model.Address, bool, error) {
	fields := map[string]string{}
	if patch.Label != nil {
		label := strings.TrimSpace(*patch.Label)
		if label == "" {
			label = model.DefaultAddressLabel
		}
		if utf8.RuneCountInString(label) > MaxAddressLabelLength {
			fields["label"] = fmt.Sprintf("must be at most %d characters", MaxAddressLabelLength)
		}
		patch.Label = &label
	}
	if patch.SharedWith != nil {
		emails := model.NormalizeEmails(*patch.SharedWith)
		for i, e := range emails {
			if !validEmail(e) {
				fields[fmt.Sprintf("sharedWith[%d]", i)] = "must be a valid email address"
			}
		}
		patch.SharedWith = &emails
	}
	if err := check(nil, fields); err != nil {
		return model.Address{}, false, err
	}

	before, ok, err := s.store.GetAddress(ctx, id)
	if err != nil || !ok {
		return model.Address{}, ok, err
	}

	a, ok, err := s.store.UpdateAddress(ctx, id, patch)
	if err != nil {
		return model.Address{}, false, fmt.Errorf("updating address %s: %w", id, err)
	}
	if ok {
		s.notifyShares(ctx, a, added(before.SharedWith, a.SharedWith))
	}
	return a, ok, nil
}

func (s *InventoryService) ShareAddress(ctx context.Context, id, email string) (model.Address, bool, error) {
	email = model.NormalizeEmail(email)
	if !validEmail(email) {
		return model.Address{}, false, apperror.ValidationFailed("email", "must be a valid email address")
	}

	before, ok, err := s.store.GetAddress(ctx, id)
	if err != nil || !ok {
		return model.Address{}, ok, err
	}

	a, ok, err := s.store.ShareAddress(ctx, id, email)
	if err != nil {
		return model.Address{}, false, fmt.Errorf("sharing address %s: %w", id, err)
	}
	if ok {
		s.notifyShares(ctx, a, added(before.SharedWith, a.SharedWith))
	}
	return a, ok, nil
}

func (s *InventoryService) UnshareAddress(ctx context.Context, id, email string) (model.Address, bool, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return model.Address{}, false, apperror.ValidationFailed("email", "is required")
	}
	return s.store.UnshareAddress(ctx, id, email)
}

func (s *InventoryService) DeleteAddress(ctx context.Context, id string) error {
	if err := s.store.DeleteAddress(ctx, id); err != nil {
		return fmt.Errorf("deleting address %s: %w", id, err)
	}
	s.logger.Info("address deleted", slog.String("id", id))
	return nil
}

// added lists the entries of after that were not in before.
func added(before, after []string) []string {
	var out []string
	for _, e := range after {
		if !slices.Contains(before, e) {
			out = append(out, e)
		}
	}
	return out
}

// notifyShares is best effort: a failed delivery is logged and dropped.
func (s *InventoryService) notifyShares(ctx context.Context, a model.Address, recipients []string) {
	for _, r := range recipients {
		err := s.notifier.AddressShared(ctx, notify.Share{
			AddressID:    a.ID,
			AddressLabel: a.Label,
			OwnerID:      a.UserID,
			OwnerEmail:   s.ownerEmail,
			Recipient:    r,
		})
		if err != nil {
			s.logger.Warn("share notification failed",
				slog.String("addressID", a.ID),
				slog.String("recipient", r),
				slog.String("error", err.Error()),
			)
		}
	}
}

// =========================================================================
// ITEMS
// =========================================================================

func (s *InventoryService) ListItems(ctx context.Context, q model.ItemQuery) (model.Page[model.Item], error) {
	q.PageSize = min(q.PageSize, MaxPageSize)
	return s.store.ListItems(ctx, q)
}

func (s *InventoryService) GetItem(ctx context.Context, id string) (model.Item, bool, error) {
	return s.store.GetItem(ctx, id)
}

func (s *InventoryService) CreateItem(ctx context.Context, in model.ItemInput) (model.Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.AddressID = strings.TrimSpace(in.AddressID)
	in.Currency = strings.TrimSpace(in.Currency)
	in.Tags = model.CleanTags(in.Tags)

	fields := map[string]string{}
	if in.Name == "" {
		fields["name"] = "is required"
	}
	if in.PurchaseDate != "" {
		if _, ok := query.ParseDate(in.PurchaseDate); !ok {
			fields["purchaseDate"] = "must be a date (YYYY-MM-DD)"
		}
	}
	if err := s.checkAddressRef(ctx, in.AddressID, fields); err != nil {
		return model.Item{}, err
	}
	if err := check(in, fields); err != nil {
		return model.Item{}, err
	}

	it, err := s.store.CreateItem(ctx, in)
	if err != nil {
		return model.Item{}, fmt.Errorf("creating item: %w", err)
	}
	s.logger.Info("item created", slog.String("id", it.ID), slog.String("owner", it.UserID))
	return it, nil
}

func (s *InventoryService) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) (model.Item, bool, error) {
	fields := map[string]string{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		switch {
		case name == "":
			fields["name"] = "is required"
		case utf8.RuneCountInString(name) > MaxItemNameLength:
			fields["name"] = fmt.Sprintf("must be at most %d characters", MaxItemNameLength)
		}
		patch.Name = &name
	}
	if patch.Description.Set && !patch.Description.Null &&
		utf8.RuneCountInString(patch.Description.Value) > MaxDescriptionLength {
		fields["description"] = fmt.Sprintf("must be at most %d characters", MaxDescriptionLength)
	}
	if patch.PurchaseDate.Set && !patch.PurchaseDate.Null && patch.PurchaseDate.Value != "" {
		if _, ok := query.ParseDate(patch.PurchaseDate.Value); !ok {
			fields["purchaseDate"] = "must be a date (YYYY-MM-DD)"
		}
	}
	if patch.PurchasePriceCents.Set && !patch.PurchasePriceCents.Null && patch.PurchasePriceCents.Value < 0 {
		fields["purchasePriceCents"] = "must be at least 0"
	}
	if patch.Currency.Set && !patch.Currency.Null &&
		utf8.RuneCountInString(strings.TrimSpace(patch.Currency.Value)) > MaxCurrencyLength {
		fields["currency"] = fmt.Sprintf("must be at most %d characters", MaxCurrencyLength)
	}
	if patch.AddressID.Set && !patch.AddressID.Null {
		if err := s.checkAddressRef(ctx, strings.TrimSpace(patch.AddressID.Value), fields); err != nil {
			return model.Item{}, false, err
		}
	}
	if err := check(nil, fields); err != nil {
		return model.Item{}, false, err
	}

	it, ok, err := s.store.UpdateItem(ctx, id, patch)
	if err != nil {
		return model.Item{}, false, fmt.Errorf("updating item %s: %w", id, err)
	}
	return it, ok, nil
}

func (s *InventoryService) DeleteItem(ctx context.Context, id string) error {
	return s.BulkDeleteItems(ctx, []string{id})
}

func (s *InventoryService) BulkDeleteItems(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.store.BulkDeleteItems(ctx, ids); err != nil {
		return fmt.Errorf("deleting %d items: %w", len(ids), err)
	}
	s.logger.Info("items deleted", slog.Int("count", len(ids)))
	return nil
}

// Reset empties the whole record in one write.
func (s *InventoryService) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("resetting inventory: %w", err)
	}
	s.logger.Info("inventory reset")
	return nil
}

func (s *InventoryService) MoveItems(ctx context.Context, ids []string, target model.AddressFilter) error {
	if len(ids) == 0 {
		return nil
	}
	fields := map[string]string{}
	if err := s.checkAddressRef(ctx, target.TargetID(), fields); err != nil {
		return err
	}
	if err := check(nil, fields); err != nil {
		return err
	}
	if err := s.store.MoveItems(ctx, ids, target); err != nil {
		return fmt.Errorf("moving %d items: %w", len(ids), err)
	}
	s.logger.Info("items moved", slog.Int("count", len(ids)), slog.String("target", target.String()))
	return nil
}

// checkAddressRef records a field error when id names no address.
// An empty id means Unlocated and is always fine.
func (s *InventoryService) checkAddressRef(ctx context.Context, id string, fields map[string]string) error {
	if id == "" {
		return nil
	}
	_, ok, err := s.store.GetAddress(ctx, id)
	if err != nil {
		return fmt.Errorf("looking up address %s: %w", id, err)
	}
	if !ok {
		fields["addressId"] = "unknown address"
	}
	return nil
}

// =========================================================================
// DERIVED VIEW
// =========================================================================

// ViewQuery is one page of a selection plus the derivation settings.
type ViewQuery struct {
	model.ItemQuery
	Sort     query.SortKey
	Tag      string
	MinPrice *int64
	MaxPrice *int64
}

// View is what a user sees for one page: the derived items, the page
// totals, the price bounds of the whole selection and the range actually
// applied after clamping.
type View struct {
	Items    []model.Item `json:"items"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
	Bounds   query.Bounds `json:"bounds"`
	MinPrice *int64       `json:"minPrice,omitempty"`
	MaxPrice *int64       `json:"maxPrice,omitempty"`
}

// View lists one page, computes bounds over every item in the selected
// address (all pages), clamps the requested range into them and derives
// the visible sequence.
func (s *InventoryService) View(ctx context.Context, vq ViewQuery) (View, error) {
	page, err := s.ListItems(ctx, vq.ItemQuery)
	if err != nil {
		return View{}, err
	}
	all, err := s.store.AllItems(ctx, vq.Address)
	if err != nil {
		return View{}, fmt.Errorf("computing price bounds: %w", err)
	}

	bounds := query.ComputeBounds(all)
	lo, hi := bounds.Clamp(vq.MinPrice, vq.MaxPrice)

	items := query.Derive(page.Items, query.Options{
		Bounds:   &bounds,
		MinPrice: lo,
		MaxPrice: hi,
		Tag:      vq.Tag,
		Sort:     vq.Sort,
	})
	return View{
		Items:    items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Bounds:   bounds,
		MinPrice: lo,
		MaxPrice: hi,
	}, nil
}
