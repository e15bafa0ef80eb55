package api

import (
	"net/http"
	"strconv"

	"github.com/mohammed-shakir/ecomap/internal/layers"
	"github.com/mohammed-shakir/ecomap/internal/overlay"
)

func (h *Handler) listFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Registry.Filters())
}

func (h *Handler) getFilter(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Controller.Status())
}

// toggleFilter selects the filter, or clears it when it is already active.
// An id with no layer behind it is accepted and leaves the map idle.
func (h *Handler) toggleFilter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID *layers.FilterID `json:"id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.ID == nil {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	h.Controller.Toggle(*body.ID)
	writeJSON(w, http.StatusOK, h.Controller.Status())
}

func (h *Handler) clearFilter(w http.ResponseWriter, _ *http.Request) {
	h.Controller.SetFilter(nil)
	writeJSON(w, http.StatusOK, h.Controller.Status())
}

func (h *Handler) getOverlay(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Overlay.Snapshot())
}

func (h *Handler) getClusters(w http.ResponseWriter, r *http.Request) {
	zoom := h.Camera.Position().Zoom
	if v := r.URL.Query().Get("zoom"); v != "" {
		z, err := strconv.Atoi(v)
		if err != nil || z < 0 {
			writeError(w, http.StatusBadRequest, "invalid zoom")
			return
		}
		zoom = z
	}
	cs, err := h.Overlay.Clusters(zoom, h.ClusterMaxRes)
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "cluster points", "err", err, "zoom", zoom)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cs == nil {
		cs = []overlay.Cluster{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"zoom": zoom, "clusters": cs})
}
