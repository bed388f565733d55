package handler

import (
	"net/http"

	"github.com/sakif/stash/internal/prefs"
)

// HandleGetPreferences: GET /api/preferences. Unset keys come back as
// their defaults.
func (h *InventoryHandler) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	p, err := sc.Prefs.Load(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandlePutPreferences: PUT /api/preferences. The whole set is replaced;
// invalid values fall back to defaults.
func (h *InventoryHandler) HandlePutPreferences(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var p prefs.Preferences
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, h.logger, err)
		return
	}
	p = p.Normalize()
	if err := sc.Prefs.Save(r.Context(), p); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.mutated("preferences.save")
	writeJSON(w, http.StatusOK, p)
}
