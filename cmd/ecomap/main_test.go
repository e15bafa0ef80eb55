package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohammed-shakir/ecomap/internal/core/config"
	"github.com/mohammed-shakir/ecomap/internal/layers"
)

const waterBody = `[
	{"regionId":"r1","regionName":"Тест","geoJson":"{\"type\":\"Polygon\",\"coordinates\":[[[0,0],[0,1],[1,1],[0,0]]]}","dirtySurfaceWaterPercent":40},
	{"regionId":"r2","regionName":"Пусто","geoJson":"","dirtySurfaceWaterPercent":10}
]`

func TestFetchLayer_StylesChoropleth(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/v1/map/layer/water" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, waterBody)
	}))
	defer srv.Close()

	cfg := config.Config{LogLevel: "error", APIBaseURL: srv.URL + "/api/v1", APIToken: "tok", MapZoom: 4}
	fc, skipped, err := fetchLayer(t.Context(), cfg, layers.Water)
	if err != nil {
		t.Fatalf("fetchLayer: %v", err)
	}
	if auth != "Bearer tok" {
		t.Fatalf("authorization=%q want Bearer tok", auth)
	}
	if len(fc.Features) != 1 || len(skipped) != 1 {
		t.Fatalf("features=%d skipped=%d want 1/1", len(fc.Features), len(skipped))
	}
	p := fc.Features[0].Properties
	if p["fill"] == nil || p["stroke"] == nil || p["hintText"] != "Тест: 40%" {
		t.Fatalf("properties=%v", p)
	}
}

func TestFetchLayer_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.Config{LogLevel: "error", APIBaseURL: srv.URL}
	if _, _, err := fetchLayer(t.Context(), cfg, layers.Air); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadEnv(t *testing.T) {
	if err := loadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ECOMAP_TEST_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ECOMAP_TEST_KEY", "")
	os.Unsetenv("ECOMAP_TEST_KEY")
	if err := loadEnv(path); err != nil {
		t.Fatalf("loadEnv: %v", err)
	}
	if got := os.Getenv("ECOMAP_TEST_KEY"); got != "from-file" {
		t.Fatalf("got=%q want from-file", got)
	}
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.TrimSpace(out.String()) != Version {
		t.Fatalf("got=%q want %q", out.String(), Version)
	}
}
