package query

// SortKey names one of the supported orderings.
type SortKey string

const (
	SortNameAsc   SortKey = "name-asc"
	SortNameDesc  SortKey = "name-desc"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortDateAsc   SortKey = "date-asc"
	SortDateDesc  SortKey = "date-desc"

	DefaultSort = SortNameAsc
)

// SortKeys lists every key in display order.
var SortKeys = []SortKey{SortNameAsc, SortNameDesc, SortPriceAsc, SortPriceDesc, SortDateDesc, SortDateAsc}

// ParseSortKey validates s. Unknown keys report false.
func ParseSortKey(s string) (SortKey, bool) {
	for _, k := range SortKeys {
		if string(k) == s {
			return k, true
		}
	}
	return DefaultSort, false
}
