package model

import "net/url"

// filterKind enumerates the AddressFilter variants.
type filterKind uint8

const (
	filterAll filterKind = iota
	filterUnlocated
	filterAddress
)

// AddressFilter selects items by location: every item, only Unlocated items,
// or the items of one address. The zero value selects every item.
//
// It replaces the "" / "all" / "<id>" string convention at API boundaries so
// that an empty string can never be mistaken for an address id.
type AddressFilter struct {
	kind filterKind
	id   string
}

// AllAddresses selects every item regardless of location.
func AllAddresses() AddressFilter { return AddressFilter{} }

// UnlocatedOnly selects items without an address.
func UnlocatedOnly() AddressFilter { return AddressFilter{kind: filterUnlocated} }

// AtAddress selects the items of one address. An empty id selects Unlocated
// items, so callers holding a possibly-empty AddressID get the right variant.
func AtAddress(id string) AddressFilter {
	if id == "" {
		return UnlocatedOnly()
	}
	return AddressFilter{kind: filterAddress, id: id}
}

func (f AddressFilter) IsAll() bool       { return f.kind == filterAll }
func (f AddressFilter) IsUnlocated() bool { return f.kind == filterUnlocated }

// AddressID returns the selected address id and whether the filter is At.
func (f AddressFilter) AddressID() (string, bool) {
	return f.id, f.kind == filterAddress
}

// Matches reports whether an item passes the filter.
func (f AddressFilter) Matches(it Item) bool {
	switch f.kind {
	case filterUnlocated:
		return it.AddressID == ""
	case filterAddress:
		return it.AddressID == f.id
	default:
		return true
	}
}

// TargetID is the AddressID an item gets when moved to this filter. Moving to
// All means "no address", matching what the browser UI did.
func (f AddressFilter) TargetID() string {
	if f.kind == filterAddress {
		return f.id
	}
	return ""
}

// String is used in logs.
func (f AddressFilter) String() string {
	switch f.kind {
	case filterUnlocated:
		return "unlocated"
	case filterAddress:
		return "address:" + f.id
	default:
		return "all"
	}
}

// ParseAddressFilter reads the addressId query parameter:
// absent → All, present but empty → Unlocated, anything else → that address.
func ParseAddressFilter(q url.Values) AddressFilter {
	v, ok := q["addressId"]
	if !ok || len(v) == 0 {
		return AllAddresses()
	}
	return AtAddress(v[0])
}

// Encode writes the filter into q using the same convention.
func (f AddressFilter) Encode(q url.Values) {
	switch f.kind {
	case filterUnlocated:
		q.Set("addressId", "")
	case filterAddress:
		q.Set("addressId", f.id)
	default:
		q.Del("addressId")
	}
}
