package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ReadinessReporter is satisfied by the invalidation consumer.
type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

// Pinger is satisfied by the layer cache store.
type Pinger interface {
	Ping(ctx context.Context) error
}

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Readiness reports not_ready while the consumer holds no partitions or the
// cache store does not answer. Nil dependencies are disabled and skipped.
func Readiness(rr ReadinessReporter, store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status     string  `json:"status"`
			Cache      string  `json:"cache,omitempty"`
			Partitions []int32 `json:"partitions,omitempty"`
		}
		ready := true
		out := resp{}
		if rr != nil {
			ok, parts := rr.Readiness()
			ready = ok
			if ok {
				out.Partitions = parts
			}
		}
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			err := store.Ping(ctx)
			cancel()
			out.Cache = "ok"
			if err != nil {
				out.Cache = "down"
				ready = false
			}
		}

		out.Status = "not_ready"
		if ready {
			out.Status = "ready"
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
