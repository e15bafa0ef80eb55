package config

import (
	"slices"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	cfg := FromEnv()

	if cfg.Addr != ":8090" {
		t.Fatalf("addr=%q want :8090", cfg.Addr)
	}
	if cfg.APIBaseURL != "http://localhost:8080/api/v1" {
		t.Fatalf("api base=%q", cfg.APIBaseURL)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("redis addr=%q want empty (cache disabled)", cfg.RedisAddr)
	}
	if cfg.SearchDebounce != 300*time.Millisecond {
		t.Fatalf("debounce=%v want 300ms", cfg.SearchDebounce)
	}
}

func TestFromEnv_TrimsBaseURLAndClampsClusterRes(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api.local/api/v1///")
	t.Setenv("CLUSTER_MAX_RES", "42")
	t.Setenv("GEOLOCATION_TIMEOUT", "2s")
	t.Setenv("INVALIDATION_ENABLED", "yes")

	cfg := FromEnv()
	if cfg.APIBaseURL != "http://api.local/api/v1" {
		t.Fatalf("api base=%q", cfg.APIBaseURL)
	}
	if cfg.ClusterMaxRes != 15 {
		t.Fatalf("cluster max res=%d want 15", cfg.ClusterMaxRes)
	}
	if cfg.GeolocationTimeout != 2*time.Second {
		t.Fatalf("geolocation timeout=%v want 2s", cfg.GeolocationTimeout)
	}
	if !cfg.Invalidation.Enabled {
		t.Fatalf("invalidation should be enabled")
	}
}

func TestBrokerList(t *testing.T) {
	c := InvalidationCfg{Brokers: " a:9092, ,b:9092 "}
	if got, want := c.BrokerList(), []string{"a:9092", "b:9092"}; !slices.Equal(got, want) {
		t.Fatalf("brokers=%v want %v", got, want)
	}
}

func TestFromEnv_LoggingOptions(t *testing.T) {
	t.Setenv("LOG_CONSOLE", "TRUE")
	t.Setenv("LOG_SAMPLE_N", "10")
	cfg := FromEnv()
	if !cfg.LogConsole || cfg.LogSampleN != 10 {
		t.Fatalf("console=%v sample=%d want true 10", cfg.LogConsole, cfg.LogSampleN)
	}

	t.Setenv("LOG_CONSOLE", "")
	t.Setenv("LOG_SAMPLE_N", "-3")
	cfg = FromEnv()
	if cfg.LogConsole || cfg.LogSampleN != 0 {
		t.Fatalf("console=%v sample=%d want false 0", cfg.LogConsole, cfg.LogSampleN)
	}
}
