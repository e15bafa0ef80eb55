// Package api exposes the map client state over HTTP: session, active filter,
// overlay contents, favorites, region detail, search and camera.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/ecomap/internal/backend"
	"github.com/mohammed-shakir/ecomap/internal/camera"
	"github.com/mohammed-shakir/ecomap/internal/layers/controller"
	"github.com/mohammed-shakir/ecomap/internal/layers/registry"
	"github.com/mohammed-shakir/ecomap/internal/overlay"
	"github.com/mohammed-shakir/ecomap/internal/region"
	"github.com/mohammed-shakir/ecomap/internal/search"
	"github.com/mohammed-shakir/ecomap/internal/session"
)

const maxBody = 64 << 10

// Favorites is the part of the backend client behind the favorites list.
type Favorites interface {
	Favorites(ctx context.Context, page, size int) (backend.FavoritesPage, error)
	DeleteFavorite(ctx context.Context, id string) error
}

type Deps struct {
	Logger        *slog.Logger
	Session       *session.State
	Registry      *registry.Registry
	Controller    *controller.Controller
	Overlay       *overlay.Manager
	Favorites     Favorites
	Region        *region.Fetcher
	Search        *search.Channel
	Camera        *camera.Camera
	ClusterMaxRes int
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Handler{Deps: d}
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/session", h.getSession)
	r.Post("/session", h.login)
	r.Delete("/session", h.logout)

	r.Get("/filters", h.listFilters)
	r.Get("/filter", h.getFilter)
	r.Put("/filter", h.toggleFilter)
	r.Delete("/filter", h.clearFilter)

	r.Get("/overlay", h.getOverlay)
	r.Get("/overlay/clusters", h.getClusters)

	r.Get("/favorites", h.listFavorites)
	r.Delete("/favorites/{id}", h.deleteFavorite)
	r.Post("/favorites/select", h.selectFavorite)

	r.Get("/region", h.getRegion)
	r.Delete("/region", h.closeRegion)
	r.Post("/regions/{id}/select", h.selectRegion)

	r.Get("/search", h.search)
	r.Post("/search/select", h.selectResult)

	r.Get("/camera", h.getCamera)
	r.Post("/camera/fly", h.fly)
	r.Post("/camera/locate", h.locate)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// upstreamError maps a backend failure to a response. Backend status codes
// in the 4xx range pass through; everything else is a bad gateway.
func (h *Handler) upstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := http.StatusBadGateway
	if sc := backend.StatusCode(err); sc >= 400 && sc < 500 {
		code = sc
	}
	if errors.Is(err, context.Canceled) {
		h.Logger.DebugContext(r.Context(), "request cancelled", "op", op)
		return
	}
	h.Logger.WarnContext(r.Context(), "backend call failed", "op", op, "err", err)
	writeError(w, code, fmt.Sprintf("%s: %v", op, err))
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
