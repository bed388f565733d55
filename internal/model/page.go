package model

// Page is one page of a filtered collection. Total counts every match, not
// just the ones in Items.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Paginate slices all into the requested 1-based page. Out-of-range pages,
// including page < 1 or pageSize < 1, are empty, never nil. The offset is
// bounded by division so huge page numbers cannot overflow.
func Paginate[T any](all []T, page, pageSize int) Page[T] {
	start := len(all)
	if page >= 1 && pageSize >= 1 && page-1 <= len(all)/pageSize {
		start = (page - 1) * pageSize
	}
	end := start + max(0, min(pageSize, len(all)-start))
	items := make([]T, end-start)
	copy(items, all[start:end])
	return Page[T]{Items: items, Total: len(all), Page: page, PageSize: pageSize}
}

// ItemQuery is the store-level filter for listing items.
type ItemQuery struct {
	Q        string
	Address  AddressFilter
	Page     int
	PageSize int
}
