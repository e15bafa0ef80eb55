package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (h *Handler) listFavorites(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 0)
	if err != nil || page < 0 {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	size, err := queryInt(r, "size", defaultPageSize)
	if err != nil || size <= 0 {
		writeError(w, http.StatusBadRequest, "invalid size")
		return
	}
	size = min(size, maxPageSize)

	p, err := h.Favorites.Favorites(r.Context(), page, size)
	if err != nil {
		h.upstreamError(w, r, "favorites", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) deleteFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Favorites.DeleteFavorite(r.Context(), id); err != nil {
		h.upstreamError(w, r, "delete favorite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// selectFavorite opens the detail view for a favorite given by name.
func (h *Handler) selectFavorite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	h.Region.SelectByName(name)
	writeJSON(w, http.StatusAccepted, h.Region.View())
}

func (h *Handler) getRegion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Region.View())
}

func (h *Handler) selectRegion(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	h.Region.Select(id)
	writeJSON(w, http.StatusAccepted, h.Region.View())
}

func (h *Handler) closeRegion(w http.ResponseWriter, _ *http.Request) {
	h.Region.Close()
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
