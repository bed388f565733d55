package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/metrics"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/query"
	"github.com/sakif/stash/internal/service"
)

// InventoryHandler serves addresses, items and the derived item view.
//
//	InventoryHandler → Owners (who is asking) → InventoryService → Store
type InventoryHandler struct {
	owners  *Owners
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewInventoryHandler(owners *Owners, m *metrics.Metrics, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{owners: owners, metrics: m, logger: logger}
}

// Routes mounts every inventory endpoint on r.
func (h *InventoryHandler) Routes(r chi.Router) {
	r.Get("/addresses", h.HandleListAddresses)
	r.Post("/addresses", h.HandleCreateAddress)
	r.Get("/addresses/{id}", h.HandleGetAddress)
	r.Put("/addresses/{id}", h.HandleUpdateAddress)
	r.Delete("/addresses/{id}", h.HandleDeleteAddress)
	r.Post("/addresses/{id}/share", h.HandleShareAddress)
	r.Post("/addresses/{id}/unshare", h.HandleUnshareAddress)

	r.Get("/items", h.HandleListItems)
	r.Get("/items/view", h.HandleView)
	r.Post("/items", h.HandleCreateItem)
	r.Post("/items/bulk-delete", h.HandleBulkDelete)
	r.Post("/items/bulk-move", h.HandleBulkMove)
	r.Get("/items/{id}", h.HandleGetItem)
	r.Put("/items/{id}", h.HandleUpdateItem)
	r.Delete("/items/{id}", h.HandleDeleteItem)

	r.Get("/preferences", h.HandleGetPreferences)
	r.Put("/preferences", h.HandlePutPreferences)
}

// scope resolves the caller and writes the error response when that fails.
func (h *InventoryHandler) scope(w http.ResponseWriter, r *http.Request) (Scope, bool) {
	sc, err := h.owners.Resolve(r)
	if err != nil {
		writeError(w, h.logger, err)
		return Scope{}, false
	}
	return sc, true
}

func (h *InventoryHandler) mutated(op string) {
	if h.metrics != nil {
		h.metrics.Mutation(op)
	}
}

// =========================================================================
// ADDRESSES
// =========================================================================

// HandleListAddresses: GET /api/addresses?page&pageSize
func (h *InventoryHandler) HandleListAddresses(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	page, size, err := pageParams(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out, err := sc.Inventory.ListAddresses(r.Context(), page, size)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetAddress: GET /api/addresses/{id}
func (h *InventoryHandler) HandleGetAddress(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	a, found, err := sc.Inventory.GetAddress(r.Context(), id)
	h.respondAddress(w, http.StatusOK, id, a, found, err)
}

// HandleCreateAddress: POST /api/addresses → 201
func (h *InventoryHandler) HandleCreateAddress(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var in model.AddressInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	in.UserID = "" // ownership comes from the session
	a, err := sc.Inventory.CreateAddress(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.mutated("address.create")
	writeJSON(w, http.StatusCreated, a)
}

// HandleUpdateAddress: PUT /api/addresses/{id}
func (h *InventoryHandler) HandleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var patch model.AddressPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	id := chi.URLParam(r, "id")
	a, found, err := sc.Inventory.UpdateAddress(r.Context(), id, patch)
	if err == nil && found {
		h.mutated("address.update")
	}
	h.respondAddress(w, http.StatusOK, id, a, found, err)
}

// HandleShareAddress: POST /api/addresses/{id}/share {email}
func (h *InventoryHandler) HandleShareAddress(w http.ResponseWriter, r *http.Request) {
	h.share(w, r, "address.share", func(sc Scope, id, email string) (model.Address, bool, error) {
		return sc.Inventory.ShareAddress(r.Context(), id, email)
	})
}

// HandleUnshareAddress: POST /api/addresses/{id}/unshare {email}
func (h *InventoryHandler) HandleUnshareAddress(w http.ResponseWriter, r *http.Request) {
	h.share(w, r, "address.unshare", func(sc Scope, id, email string) (model.Address, bool, error) {
		return sc.Inventory.UnshareAddress(r.Context(), id, email)
	})
}

func (h *InventoryHandler) share(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	apply func(sc Scope, id, email string) (model.Address, bool, error),
) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req model.ShareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	id := chi.URLParam(r, "id")
	a, found, err := apply(sc, id, req.Email)
	if err == nil && found {
		h.mutated(op)
	}
	h.respondAddress(w, http.StatusOK, id, a, found, err)
}

// HandleDeleteAddress: DELETE /api/addresses/{id} → 204. Items at the
// address become unlocated.
func (h *InventoryHandler) HandleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := sc.Inventory.DeleteAddress(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.mutated("address.delete")
	w.WriteHeader(http.StatusNoContent)
}

func (h *InventoryHandler) respondAddress(w http.ResponseWriter, status int, id string, a model.Address, found bool, err error) {
	switch {
	case err != nil:
		writeError(w, h.logger, err)
	case !found:
		writeError(w, h.logger, apperror.NotFound("address", id))
	default:
		writeJSON(w, status, a)
	}
}

// =========================================================================
// ITEMS
// =========================================================================

// HandleListItems: GET /api/items?q&addressId&page&pageSize
//
// addressId absent lists everything, present but empty lists unlocated
// items.
func (h *InventoryHandler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	q, err := itemQuery(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out, err := sc.Inventory.ListItems(r.Context(), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleView: GET /api/items/view?…&sort&tag&minPrice&maxPrice
func (h *InventoryHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	vq, err := viewQuery(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out, err := sc.Inventory.View(r.Context(), vq)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetItem: GET /api/items/{id}
func (h *InventoryHandler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	it, found, err := sc.Inventory.GetItem(r.Context(), id)
	h.respondItem(w, id, it, found, err)
}

// HandleCreateItem: POST /api/items → 201
func (h *InventoryHandler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var in model.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	it, err := sc.Inventory.CreateItem(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.mutated("item.create")
	writeJSON(w, http.StatusCreated, it)
}

// HandleUpdateItem: PUT /api/items/{id}. Absent fields are kept, null
// clears optional ones.
func (h *InventoryHandler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var patch model.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	id := chi.URLParam(r, "id")
	it, found, err := sc.Inventory.UpdateItem(r.Context(), id, patch)
	if err == nil && found {
		h.mutated("item.update")
	}
	h.respondItem(w, id, it, found, err)
}

// HandleDeleteItem: DELETE /api/items/{id} → 204, also for unknown ids.
func (h *InventoryHandler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := sc.Inventory.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.mutated("item.delete")
	w.WriteHeader(http.StatusNoContent)
}

// HandleBulkDelete: POST /api/items/bulk-delete {ids} → 204
func (h *InventoryHandler) HandleBulkDelete(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req model.BulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := sc.Inventory.BulkDeleteItems(r.Context(), req.IDs); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.mutated("item.bulk_delete")
	w.WriteHeader(http.StatusNoContent)
}

// HandleBulkMove: POST /api/items/bulk-move {ids, addressId|null} → 204
func (h *InventoryHandler) HandleBulkMove(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req model.MoveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := sc.Inventory.MoveItems(r.Context(), req.IDs, req.Target()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.mutated("item.bulk_move")
	w.WriteHeader(http.StatusNoContent)
}

func (h *InventoryHandler) respondItem(w http.ResponseWriter, id string, it model.Item, found bool, err error) {
	switch {
	case err != nil:
		writeError(w, h.logger, err)
	case !found:
		writeError(w, h.logger, apperror.NotFound("item", id))
	default:
		writeJSON(w, http.StatusOK, it)
	}
}

func pageParams(r *http.Request) (page, size int, err error) {
	if page, err = intParam(r, "page"); err != nil {
		return 0, 0, err
	}
	if size, err = intParam(r, "pageSize"); err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func itemQuery(r *http.Request) (model.ItemQuery, error) {
	page, size, err := pageParams(r)
	if err != nil {
		return model.ItemQuery{}, err
	}
	q := r.URL.Query()
	return model.ItemQuery{
		Q:        q.Get("q"),
		Address:  model.ParseAddressFilter(q),
		Page:     page,
		PageSize: size,
	}, nil
}

func viewQuery(r *http.Request) (service.ViewQuery, error) {
	iq, err := itemQuery(r)
	if err != nil {
		return service.ViewQuery{}, err
	}
	vq := service.ViewQuery{ItemQuery: iq, Tag: r.URL.Query().Get("tag")}

	if raw := r.URL.Query().Get("sort"); raw != "" {
		key, ok := query.ParseSortKey(raw)
		if !ok {
			return service.ViewQuery{}, apperror.ValidationFailed("sort", "unknown sort key")
		}
		vq.Sort = key
	}
	if vq.MinPrice, err = priceParam(r, "minPrice"); err != nil {
		return service.ViewQuery{}, err
	}
	if vq.MaxPrice, err = priceParam(r, "maxPrice"); err != nil {
		return service.ViewQuery{}, err
	}
	return vq, nil
}
