package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ecomap/internal/backend"
	"github.com/mohammed-shakir/ecomap/internal/camera"
	"github.com/mohammed-shakir/ecomap/internal/layers/color"
	"github.com/mohammed-shakir/ecomap/internal/layers/controller"
	"github.com/mohammed-shakir/ecomap/internal/layers/registry"
	"github.com/mohammed-shakir/ecomap/internal/logger"
	"github.com/mohammed-shakir/ecomap/internal/overlay"
	"github.com/mohammed-shakir/ecomap/internal/region"
	"github.com/mohammed-shakir/ecomap/internal/search"
	"github.com/mohammed-shakir/ecomap/internal/session"
)

const airBody = `[
	{"id":1,"name":"A","pm25":10,"coordinatesResponseDto":{"lat":55.75,"lon":37.61}},
	{"id":2,"name":"B","pm25":11,"coordinatesResponseDto":{"lat":55.7501,"lon":37.6101}}
]`

type fakeBackend struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/map/layer/air":
		_, _ = io.WriteString(w, airBody)
	case r.URL.Path == "/regions":
		_, _ = io.WriteString(w, `[{"id":77,"name":"Москва"},{"id":50,"name":"Московская область"}]`)
	case r.URL.Path == "/regions/77":
		_, _ = io.WriteString(w, `{"id":77,"name":"Москва","center":{"lat":55.75,"lon":37.61}}`)
	case r.URL.Path == "/search":
		_, _ = io.WriteString(w, `[{"id":77,"name":"Москва","type":"region","lat":55.75,"lon":37.61}]`)
	case r.URL.Path == "/favorite-regions" && r.Method == http.MethodGet:
		_, _ = io.WriteString(w, `{"content":[{"id":1,"name":"Москва"}],"number":`+r.URL.Query().Get("page")+`,"size":`+r.URL.Query().Get("size")+`}`)
	case strings.HasPrefix(r.URL.Path, "/favorite-regions/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(r.URL.Path, "/favorite-regions/")
		if id == "404" {
			http.Error(w, "missing", http.StatusNotFound)
			return
		}
		f.mu.Lock()
		f.deleted = append(f.deleted, id)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

type testEnv struct {
	srv  *httptest.Server
	h    *Handler
	back *fakeBackend
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	fb := &fakeBackend{}
	upstream := httptest.NewServer(fb)
	t.Cleanup(upstream.Close)

	log := logger.Discard()
	client, err := backend.New(log, upstream.Client(), upstream.URL)
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	sess := session.New("")
	reg := registry.Default(color.NewEncoder(nil))
	ov := overlay.NewManager(overlay.NewMemoryRenderer())
	ctrl := controller.New(t.Context(), log, reg, client, ov)
	sess.OnChange(ctrl.SetLoggedIn)

	h := New(Deps{
		Logger:        log,
		Session:       sess,
		Registry:      reg,
		Controller:    ctrl,
		Overlay:       ov,
		Favorites:     client,
		Region:        region.New(t.Context(), log, client, region.Config{CacheSize: 8, CacheTTL: time.Minute}),
		Search:        search.New(t.Context(), log, client, search.Config{Debounce: 5 * time.Millisecond, MinChars: 2}),
		Camera:        camera.New(log, camera.Position{Center: orb.Point{37.6176, 55.7558}, Zoom: 4}, time.Second),
		ClusterMaxRes: 9,
	})
	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		ctrl.Wait()
		h.Region.Wait()
	})
	return &testEnv{srv: srv, h: h, back: fb}
}

func (e *testEnv) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestFilter_ToggleShowsPointsAfterLogin(t *testing.T) {
	e := newEnv(t)

	var st controller.Status
	if code := e.do(t, http.MethodPut, "/filter", `{"id":0}`, &st); code != http.StatusOK {
		t.Fatalf("status=%d want 200", code)
	}
	if st.State != controller.Idle || st.LoggedIn {
		t.Fatalf("logged-out toggle got=%+v want idle", st)
	}

	if code := e.do(t, http.MethodPost, "/session", `{"token":"opaque"}`, nil); code != http.StatusOK {
		t.Fatalf("login status=%d", code)
	}
	e.h.Controller.Wait()

	e.do(t, http.MethodGet, "/filter", "", &st)
	if st.State != controller.Displaying || st.Layer != "air" {
		t.Fatalf("got=%+v want displaying air", st)
	}

	var snap struct {
		State    string `json:"state"`
		Features struct {
			Features []json.RawMessage `json:"features"`
		} `json:"features"`
	}
	e.do(t, http.MethodGet, "/overlay", "", &snap)
	if snap.State != "points" || len(snap.Features.Features) != 2 {
		t.Fatalf("overlay state=%q features=%d", snap.State, len(snap.Features.Features))
	}

	var cl struct {
		Clusters []overlay.Cluster `json:"clusters"`
	}
	e.do(t, http.MethodGet, "/overlay/clusters?zoom=4", "", &cl)
	if len(cl.Clusters) != 1 || cl.Clusters[0].Count != 2 {
		t.Fatalf("clusters=%+v want one cluster of 2", cl.Clusters)
	}
	e.do(t, http.MethodGet, "/overlay/clusters?zoom=17", "", &cl)
	if len(cl.Clusters) != 2 {
		t.Fatalf("split clusters=%d want 2", len(cl.Clusters))
	}

	// same id again clears
	e.do(t, http.MethodPut, "/filter", `{"id":0}`, &st)
	if st.Filter != nil || st.State != controller.Idle {
		t.Fatalf("second toggle got=%+v want cleared", st)
	}
	e.do(t, http.MethodGet, "/overlay", "", &snap)
	if snap.State != "none" {
		t.Fatalf("overlay state=%q want none", snap.State)
	}
}

func TestFilter_Validation(t *testing.T) {
	e := newEnv(t)
	for _, body := range []string{`{}`, `{"id":null}`, `{"id":"air"}`, `not json`, `{"id":0,"extra":1}`} {
		if code := e.do(t, http.MethodPut, "/filter", body, nil); code != http.StatusBadRequest {
			t.Fatalf("body %s: status=%d want 400", body, code)
		}
	}
	var fs []struct {
		ID    int    `json:"id"`
		Label string `json:"label"`
	}
	e.do(t, http.MethodGet, "/filters", "", &fs)
	if len(fs) != 5 || fs[2].Label != "Загрязнение воды" {
		t.Fatalf("filters=%+v", fs)
	}
}

func TestFilter_UnknownIDClearsDisplayedLayer(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/session", `{"token":"opaque"}`, nil)
	e.do(t, http.MethodPut, "/filter", `{"id":0}`, nil)
	e.h.Controller.Wait()

	var st controller.Status
	if code := e.do(t, http.MethodPut, "/filter", `{"id":42}`, &st); code != http.StatusOK {
		t.Fatalf("status=%d want 200", code)
	}
	e.h.Controller.Wait()
	e.do(t, http.MethodGet, "/filter", "", &st)
	if st.State != controller.Idle || st.Layer != "" {
		t.Fatalf("got=%+v want idle without layer", st)
	}
	if s := e.h.Overlay.State(); s != overlay.StateNone {
		t.Fatalf("overlay=%q want none", s)
	}
}

func TestLogout_ClearsOverlay(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/session", `{"token":"opaque"}`, nil)
	e.do(t, http.MethodPut, "/filter", `{"id":0}`, nil)
	e.h.Controller.Wait()

	if code := e.do(t, http.MethodDelete, "/session", "", nil); code != http.StatusNoContent {
		t.Fatalf("logout status=%d", code)
	}
	if s := e.h.Overlay.State(); s != overlay.StateNone {
		t.Fatalf("overlay=%q want none", s)
	}
	var sv sessionView
	e.do(t, http.MethodGet, "/session", "", &sv)
	if sv.LoggedIn {
		t.Fatalf("still logged in")
	}
}

func TestLogin_RequiresToken(t *testing.T) {
	e := newEnv(t)
	if code := e.do(t, http.MethodPost, "/session", `{"token":"  "}`, nil); code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", code)
	}
}

func TestFavorites_PageDeleteAndSelect(t *testing.T) {
	e := newEnv(t)

	var page backend.FavoritesPage
	if code := e.do(t, http.MethodGet, "/favorites?page=2&size=500", "", &page); code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	if page.Number != 2 || page.Size != maxPageSize || len(page.Content) != 1 {
		t.Fatalf("page=%+v", page)
	}
	if code := e.do(t, http.MethodGet, "/favorites?page=-1", "", nil); code != http.StatusBadRequest {
		t.Fatalf("negative page status=%d want 400", code)
	}

	if code := e.do(t, http.MethodDelete, "/favorites/5", "", nil); code != http.StatusNoContent {
		t.Fatalf("delete status=%d", code)
	}
	if code := e.do(t, http.MethodDelete, "/favorites/404", "", nil); code != http.StatusNotFound {
		t.Fatalf("delete missing status=%d want 404", code)
	}
	e.back.mu.Lock()
	deleted := append([]string(nil), e.back.deleted...)
	e.back.mu.Unlock()
	if len(deleted) != 1 || deleted[0] != "5" {
		t.Fatalf("deleted=%v want [5]", deleted)
	}

	if code := e.do(t, http.MethodPost, "/favorites/select", `{"name":" москва "}`, nil); code != http.StatusAccepted {
		t.Fatalf("select status=%d", code)
	}
	e.h.Region.Wait()
	var v region.View
	e.do(t, http.MethodGet, "/region", "", &v)
	if v.Phase != region.PhaseLoaded || v.RegionID != "77" || v.Detail == nil || v.Detail.Name != "Москва" {
		t.Fatalf("view=%+v", v)
	}

	e.do(t, http.MethodPost, "/favorites/select", `{"name":"Атлантида"}`, nil)
	e.h.Region.Wait()
	e.do(t, http.MethodGet, "/region", "", &v)
	if v.Phase != region.PhaseLoaded || v.Error == "" || v.Detail != nil {
		t.Fatalf("unresolved view=%+v", v)
	}

	if code := e.do(t, http.MethodDelete, "/region", "", nil); code != http.StatusNoContent {
		t.Fatalf("close status=%d", code)
	}
	e.do(t, http.MethodGet, "/region", "", &v)
	if v.Phase != region.PhaseClosed {
		t.Fatalf("phase=%q want closed", v.Phase)
	}
}

func TestRegion_SelectByID(t *testing.T) {
	e := newEnv(t)
	var v region.View
	if code := e.do(t, http.MethodPost, "/regions/77/select", "", &v); code != http.StatusAccepted {
		t.Fatalf("status=%d", code)
	}
	if v.Phase != region.PhaseLoading && v.Phase != region.PhaseLoaded {
		t.Fatalf("phase=%q", v.Phase)
	}
	e.h.Region.Wait()
	e.do(t, http.MethodGet, "/region", "", &v)
	if v.Phase != region.PhaseLoaded || v.Detail == nil || v.Detail.Center == nil {
		t.Fatalf("view=%+v", v)
	}
}

func TestSearch_SettleAndSelectRegion(t *testing.T) {
	e := newEnv(t)

	var s search.Suggestions
	if code := e.do(t, http.MethodGet, "/search?query="+url.QueryEscape("моск"), "", &s); code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	if s.Pending || len(s.Results) != 1 || !s.Results[0].IsRegion() {
		t.Fatalf("suggestions=%+v", s)
	}

	e.do(t, http.MethodGet, "/search?query="+url.QueryEscape("м"), "", &s)
	if s.Pending || len(s.Results) != 0 {
		t.Fatalf("short query got=%+v want empty", s)
	}

	var out struct {
		Camera camera.Position `json:"camera"`
		Region *region.View    `json:"region"`
	}
	body := `{"id":77,"name":"Москва","type":"region","lat":55.75,"lon":37.61}`
	if code := e.do(t, http.MethodPost, "/search/select", body, &out); code != http.StatusOK {
		t.Fatalf("select status=%d", code)
	}
	if out.Camera.Zoom != camera.RegionZoom || out.Camera.Center != (orb.Point{37.61, 55.75}) {
		t.Fatalf("camera=%+v", out.Camera)
	}
	if out.Region == nil || out.Region.RegionID != "77" {
		t.Fatalf("region=%+v", out.Region)
	}
	e.h.Region.Wait()
}

func TestSearch_SelectCityDoesNotOpenRegion(t *testing.T) {
	e := newEnv(t)
	var out struct {
		Camera camera.Position `json:"camera"`
		Region *region.View    `json:"region"`
	}
	e.do(t, http.MethodPost, "/search/select", `{"id":"c1","name":"Тверь","type":"city","lat":56.86,"lon":35.9}`, &out)
	if out.Camera.Zoom != camera.CityZoom || out.Region != nil {
		t.Fatalf("got=%+v", out)
	}
	if v := e.h.Region.View(); v.Phase != region.PhaseClosed {
		t.Fatalf("phase=%q want closed", v.Phase)
	}
	if code := e.do(t, http.MethodPost, "/search/select", `{"type":"city","lat":120,"lon":0}`, nil); code != http.StatusBadRequest {
		t.Fatalf("bad center status=%d want 400", code)
	}
}

func TestCamera_LocateAndFly(t *testing.T) {
	e := newEnv(t)

	var loc struct {
		Camera  camera.Position `json:"camera"`
		Located bool            `json:"located"`
	}
	e.do(t, http.MethodPost, "/camera/locate", "", &loc)
	if loc.Located || loc.Camera.Zoom != 4 {
		t.Fatalf("no-fix locate got=%+v want unchanged", loc)
	}

	e.do(t, http.MethodPost, "/camera/locate", `{"lat":59.93,"lon":30.3}`, &loc)
	if !loc.Located || loc.Camera.Zoom != camera.LocateZoom {
		t.Fatalf("locate got=%+v", loc)
	}

	var pos camera.Position
	if code := e.do(t, http.MethodPost, "/camera/fly", `{"lat":10,"lon":20,"zoom":30}`, &pos); code != http.StatusOK {
		t.Fatalf("fly status=%d", code)
	}
	if pos.Zoom != camera.MaxZoom || pos.Center != (orb.Point{20, 10}) {
		t.Fatalf("fly got=%+v", pos)
	}
	e.do(t, http.MethodGet, "/camera", "", &pos)
	if pos.Center != (orb.Point{20, 10}) {
		t.Fatalf("camera=%+v", pos)
	}
}
