package api

import (
	"context"
	"net/http"
	"time"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ecomap/internal/backend"
	"github.com/mohammed-shakir/ecomap/internal/camera"
	"github.com/mohammed-shakir/ecomap/internal/region"
)

// settleTimeout bounds how long GET /search waits for the debounced request.
const settleTimeout = 5 * time.Second

// search answers with the settled suggestions for query, or with the newer
// state when another request has replaced the query meanwhile.
func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("query")
	h.Search.Update(q)

	ctx, cancel := context.WithTimeout(r.Context(), settleTimeout)
	defer cancel()
	s, err := h.Search.Settle(ctx, q)
	if err != nil {
		h.Logger.DebugContext(r.Context(), "search not settled", "err", err)
	}
	writeJSON(w, http.StatusOK, s)
}

// selectResult flies to a suggestion. Region results also open the detail view.
func (h *Handler) selectResult(w http.ResponseWriter, r *http.Request) {
	var res backend.SearchResult
	if err := decodeBody(r, &res); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	zoom := camera.CityZoom
	if res.IsRegion() {
		zoom = camera.RegionZoom
	}
	pos, err := h.Camera.FlyTo(orb.Point{res.Lon, res.Lat}, zoom)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.Search.Reset()

	out := struct {
		Camera camera.Position `json:"camera"`
		Region *region.View    `json:"region,omitempty"`
	}{Camera: pos}
	if res.IsRegion() && res.ID != "" {
		h.Region.Select(res.ID.String())
		v := h.Region.View()
		out.Region = &v
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getCamera(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Camera.Position())
}

func (h *Handler) fly(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
		Zoom *int    `json:"zoom"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	zoom := h.Camera.Position().Zoom
	if body.Zoom != nil {
		zoom = *body.Zoom
	}
	pos, err := h.Camera.FlyTo(orb.Point{body.Lon, body.Lat}, zoom)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// locate zooms to the fix reported by the client. A request without a fix
// behaves like a denied permission: the camera stays put.
func (h *Handler) locate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if r.ContentLength != 0 {
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	loc := camera.LocatorFunc(func(context.Context) (orb.Point, error) {
		if body.Lat == nil || body.Lon == nil {
			return orb.Point{}, camera.ErrNoLocation
		}
		return orb.Point{*body.Lon, *body.Lat}, nil
	})
	pos, ok := h.Camera.ZoomToMe(r.Context(), loc)
	writeJSON(w, http.StatusOK, struct {
		Camera  camera.Position `json:"camera"`
		Located bool            `json:"located"`
	}{pos, ok})
}
