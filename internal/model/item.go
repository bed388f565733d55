package model

import (
	"strings"
	"time"
)

// Item is a tracked possession.
//
// An empty AddressID means the item is Unlocated, a normal state, not a
// missing value. PurchasePriceCents is a pointer because 0 is a valid price
// and "no price" has its own filtering and sorting rules.
type Item struct {
	ID                 string       `json:"id"`
	UserID             string       `json:"userId"`
	AddressID          string       `json:"addressId,omitempty"`
	Name               string       `json:"name"`
	Description        string       `json:"description,omitempty"`
	PurchaseDate       string       `json:"purchaseDate,omitempty"`
	PurchasePriceCents *int64       `json:"purchasePriceCents,omitempty"`
	Currency           string       `json:"currency,omitempty"`
	Tags               []string     `json:"tags"`
	Images             []MediaAsset `json:"images"`
	Receipts           []MediaAsset `json:"receipts"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// Unlocated reports whether the item has no address.
func (i Item) Unlocated() bool { return i.AddressID == "" }

// HasPrice reports whether a purchase price is recorded.
func (i Item) HasPrice() bool { return i.PurchasePriceCents != nil }

// MediaAsset is an opaque reference to an uploaded image or receipt.
type MediaAsset struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// DefaultItemName is used by the store when an item arrives without a name.
// The service layer rejects blank names before they get here.
const DefaultItemName = "Untitled item"

// ItemInput carries the fields accepted when creating an item.
type ItemInput struct {
	AddressID          string       `json:"addressId,omitempty"`
	Name               string       `json:"name"                         validate:"max=200"`
	Description        string       `json:"description,omitempty"        validate:"max=2000"`
	PurchaseDate       string       `json:"purchaseDate,omitempty"`
	PurchasePriceCents *int64       `json:"purchasePriceCents,omitempty" validate:"omitempty,min=0"`
	Currency           string       `json:"currency,omitempty"           validate:"max=8"`
	Tags               []string     `json:"tags,omitempty"`
	Images             []MediaAsset `json:"images,omitempty"`
	Receipts           []MediaAsset `json:"receipts,omitempty"`
}

// ItemPatch is a partial update of an item.
//
// Required fields use plain pointers (nil = keep). Optional fields use Opt so
// that an explicit null clears them: {"addressId": null} moves the item to
// Unlocated.
type ItemPatch struct {
	Name               *string       `json:"name,omitempty"`
	AddressID          Opt[string]   `json:"addressId,omitzero"`
	Description        Opt[string]   `json:"description,omitzero"`
	PurchaseDate       Opt[string]   `json:"purchaseDate,omitzero"`
	PurchasePriceCents Opt[int64]    `json:"purchasePriceCents,omitzero"`
	Currency           Opt[string]   `json:"currency,omitzero"`
	Tags               *[]string     `json:"tags,omitempty"`
	Images             *[]MediaAsset `json:"images,omitempty"`
	Receipts           *[]MediaAsset `json:"receipts,omitempty"`
}

// Apply merges the patch over a copy of it and returns it.
func (p ItemPatch) Apply(it Item) Item {
	if p.Name != nil {
		it.Name = *p.Name
	}
	it.AddressID = p.AddressID.Merge(it.AddressID)
	it.Description = p.Description.Merge(it.Description)
	it.PurchaseDate = p.PurchaseDate.Merge(it.PurchaseDate)
	it.PurchasePriceCents = p.PurchasePriceCents.MergePtr(it.PurchasePriceCents)
	it.Currency = p.Currency.Merge(it.Currency)
	if p.Tags != nil {
		it.Tags = CleanTags(*p.Tags)
	}
	if p.Images != nil {
		it.Images = nonNilAssets(*p.Images)
	}
	if p.Receipts != nil {
		it.Receipts = nonNilAssets(*p.Receipts)
	}
	return it
}

// CleanTags trims every tag and drops empty ones. Order is preserved and the
// result is never nil, so it always encodes as a JSON array.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func nonNilAssets(a []MediaAsset) []MediaAsset {
	if a == nil {
		return []MediaAsset{}
	}
	return a
}

// NormalizeCollections replaces nil slices with empty ones. Records decoded
// from older data may lack the fields entirely.
func (i *Item) NormalizeCollections() {
	if i.Tags == nil {
		i.Tags = []string{}
	}
	i.Images = nonNilAssets(i.Images)
	i.Receipts = nonNilAssets(i.Receipts)
}
