package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ecomap/internal/api"
	"github.com/mohammed-shakir/ecomap/internal/camera"
	"github.com/mohammed-shakir/ecomap/internal/layers/color"
	"github.com/mohammed-shakir/ecomap/internal/layers/controller"
	"github.com/mohammed-shakir/ecomap/internal/layers/registry"
	"github.com/mohammed-shakir/ecomap/internal/logger"
	"github.com/mohammed-shakir/ecomap/internal/overlay"
	"github.com/mohammed-shakir/ecomap/internal/session"
)

type waiting struct{}

func (waiting) Readiness() (bool, []int32) { return false, nil }

func newTestRouter(t *testing.T, probes Probes) http.Handler {
	t.Helper()
	log := logger.Discard()
	reg := registry.Default(color.NewEncoder(nil))
	ov := overlay.NewManager(overlay.NewMemoryRenderer())
	h := api.New(api.Deps{
		Logger:     log,
		Session:    session.New(""),
		Registry:   reg,
		Controller: controller.New(t.Context(), log, reg, nil, ov),
		Overlay:    ov,
		Camera:     camera.New(log, camera.Position{Center: orb.Point{37.6, 55.7}, Zoom: 4}, time.Second),
	})
	return NewRouter(log, h, nil, probes)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestRouter_ProbesAndMetrics(t *testing.T) {
	h := newTestRouter(t, Probes{})

	if rr := get(t, h, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("healthz=%d", rr.Code)
	}
	if rr := get(t, h, "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("readyz=%d", rr.Code)
	}
	if rr := get(t, h, "/filters"); rr.Code != http.StatusOK || rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("filters=%d reqid=%q", rr.Code, rr.Header().Get("X-Request-ID"))
	}

	rr := get(t, h, "/metrics")
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), `http_requests_total{method="GET",route="/filters"`) {
		t.Fatalf("metrics missing /filters route sample")
	}
}

func TestRouter_NotReadyWhileConsumerWaits(t *testing.T) {
	h := newTestRouter(t, Probes{Invalidation: waiting{}})
	if rr := get(t, h, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz=%d want 503", rr.Code)
	}
}
