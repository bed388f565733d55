package model

// BulkRequest names a set of items, as in POST /items/bulk-delete.
type BulkRequest struct {
	IDs []string `json:"ids" validate:"required,max=1000"`
}

// MoveRequest is the body of POST /items/bulk-move. A null or empty
// addressId moves the items to Unlocated.
type MoveRequest struct {
	IDs       []string `json:"ids" validate:"required,max=1000"`
	AddressID *string  `json:"addressId"`
}

// Target converts the wire form to a filter usable as a move target.
func (r MoveRequest) Target() AddressFilter {
	if r.AddressID == nil || *r.AddressID == "" {
		return UnlocatedOnly()
	}
	return AtAddress(*r.AddressID)
}

// ShareRequest is the body of the share and unshare endpoints.
type ShareRequest struct {
	Email string `json:"email"`
}
