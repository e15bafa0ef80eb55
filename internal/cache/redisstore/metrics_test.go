package redisstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/ecomap/internal/metrics"
)

func Test_RedisMetrics_GetHitMiss(t *testing.T) {
	p := metrics.Init(metrics.Config{})
	c, _ := newMini(t)
	ctx := context.Background()

	_ = c.Set(ctx, "k:hit", []byte("v"), time.Minute)
	_, _, _ = c.Get(ctx, "k:hit")
	_, _, _ = c.Get(ctx, "k:miss")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()

	for _, want := range []string{
		`cache_op_total{op="get",result="ok"}`,
		`cache_op_total{op="set",result="ok"}`,
		`redis_operation_duration_seconds_bucket{op="get"`,
		`cache_results_total{outcome="hit"}`,
		`cache_results_total{outcome="miss"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s\n%s", want, body)
		}
	}
}
