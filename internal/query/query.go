// Package query turns a page of items into the exact sequence a user sees:
// price range, tag filter, then a stable sort. Everything here is pure.
package query

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sakif/stash/internal/model"
)

// DefaultMaxPrice is the upper bound used when no item has a price.
const DefaultMaxPrice int64 = 999900

// Bounds is the price range of a selection.
type Bounds struct {
	HasPrices bool  `json:"hasPrices"`
	Min       int64 `json:"min"`
	Max       int64 `json:"max"`
}

// ComputeBounds returns the min and max defined price. With no priced
// items it returns {false, 0, DefaultMaxPrice}.
func ComputeBounds(items []model.Item) Bounds {
	b := Bounds{Max: DefaultMaxPrice}
	for _, it := range items {
		if it.PurchasePriceCents == nil {
			continue
		}
		p := *it.PurchasePriceCents
		if !b.HasPrices {
			b = Bounds{HasPrices: true, Min: p, Max: p}
			continue
		}
		b.Min = min(b.Min, p)
		b.Max = max(b.Max, p)
	}
	return b
}

// Clamp fits each end of a user-chosen range into the bounds on its own.
// Nil ends stay nil. An inverted range stays inverted and matches no priced
// item. When the selection has no prices at all both ends are dropped.
func (b Bounds) Clamp(lo, hi *int64) (*int64, *int64) {
	if !b.HasPrices {
		return nil, nil
	}
	fit := func(v *int64) *int64 {
		if v == nil {
			return nil
		}
		c := max(b.Min, min(*v, b.Max))
		return &c
	}
	return fit(lo), fit(hi)
}

// Options drive Derive. A nil Bounds is computed from the items themselves.
type Options struct {
	Bounds   *Bounds
	MinPrice *int64
	MaxPrice *int64
	Tag      string
	Sort     SortKey
}

// Derive applies the price filter, the tag filter and the sort. The input
// slice is not modified.
//
// Price policy:
//   - no priced item in the selection → filter is inert;
//   - priced items pass iff Min ≤ price ≤ Max (nil ends fall back to the bounds);
//   - unpriced items are hidden while the active range is narrower than the bounds.
func Derive(items []model.Item, opts Options) []model.Item {
	b := ComputeBounds(items)
	if opts.Bounds != nil {
		b = *opts.Bounds
	}

	lo, hi := b.Min, b.Max
	if opts.MinPrice != nil {
		lo = *opts.MinPrice
	}
	if opts.MaxPrice != nil {
		hi = *opts.MaxPrice
	}
	narrowed := lo > b.Min || hi < b.Max
	tag := strings.ToLower(strings.TrimSpace(opts.Tag))

	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if b.HasPrices {
			if it.PurchasePriceCents != nil {
				if p := *it.PurchasePriceCents; p < lo || p > hi {
					continue
				}
			} else if narrowed {
				continue
			}
		}
		if tag != "" && !hasTag(it, tag) {
			continue
		}
		out = append(out, it)
	}

	slices.SortStableFunc(out, comparator(opts.Sort))
	return out
}

func hasTag(it model.Item, needle string) bool {
	for _, t := range it.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func comparator(key SortKey) func(a, b model.Item) int {
	switch key {
	case SortNameDesc:
		c := collate.New(language.Und)
		return func(a, b model.Item) int { return c.CompareString(b.Name, a.Name) }
	case SortPriceAsc:
		return func(a, b model.Item) int {
			return comparePrice(a.PurchasePriceCents, b.PurchasePriceCents, true)
		}
	case SortPriceDesc:
		return func(a, b model.Item) int {
			return comparePrice(b.PurchasePriceCents, a.PurchasePriceCents, false)
		}
	case SortDateAsc:
		return func(a, b model.Item) int { return purchaseTime(a).Compare(purchaseTime(b)) }
	case SortDateDesc:
		return func(a, b model.Item) int { return purchaseTime(b).Compare(purchaseTime(a)) }
	default:
		c := collate.New(language.Und)
		return func(a, b model.Item) int { return c.CompareString(a.Name, b.Name) }
	}
}

// comparePrice orders missing prices as +∞ when missingHigh, else −∞.
func comparePrice(a, b *int64, missingHigh bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if missingHigh {
			return 1
		}
		return -1
	case b == nil:
		if missingHigh {
			return -1
		}
		return 1
	}
	return cmp.Compare(*a, *b)
}

var epoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// purchaseTime parses PurchaseDate; missing or unparsable dates sort as
// 1900-01-01.
func purchaseTime(it model.Item) time.Time {
	if t, ok := ParseDate(it.PurchaseDate); ok {
		return t
	}
	return epoch
}

// ParseDate accepts YYYY-MM-DD and RFC 3339.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
