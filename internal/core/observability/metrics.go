// Package observability holds the process-wide prometheus collectors.
package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of backend API calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream"},
	)

	layerFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layer_fetch_total",
			Help: "Layer fetches by layer type and outcome (ok, empty, cancelled, failed).",
		},
		[]string{"layer", "outcome"},
	)

	layerRecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layer_records_skipped_total",
			Help: "Raw layer records dropped by the geometry adaptor, by reason.",
		},
		[]string{"layer", "reason"},
	)

	overlaySwaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_swaps_total",
			Help: "Overlay replace/clear operations by overlay kind.",
		},
		[]string{"kind", "op"},
	)

	cacheOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis operations by op and result.",
		},
		[]string{"op", "result"},
	)

	cacheOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Duration of redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Layer cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	invalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invalidations_total",
			Help: "Dataset invalidation events processed.",
		},
		[]string{"layer", "op", "result"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

// Collectors returns every collector so a dedicated registry can expose them too.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds, upstreamLatencySeconds,
		layerFetchTotal, layerRecordsSkipped, overlaySwaps,
		cacheOps, cacheOpDuration, cacheResults, invalidations, buildInfo,
	}
}

// Register adds the collectors to reg, tolerating ones already registered.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

func IncLayerFetch(layer, outcome string) {
	layerFetchTotal.WithLabelValues(layer, outcome).Inc()
}

func AddSkippedRecords(layer, reason string, n int) {
	if n <= 0 {
		return
	}
	layerRecordsSkipped.WithLabelValues(layer, reason).Add(float64(n))
}

func IncOverlaySwap(kind, op string) {
	overlaySwaps.WithLabelValues(kind, op).Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	res := "ok"
	if err != nil {
		res = "error"
	}
	cacheOps.WithLabelValues(op, res).Inc()
	cacheOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func IncCacheHit()  { cacheResults.WithLabelValues("hit").Inc() }
func IncCacheMiss() { cacheResults.WithLabelValues("miss").Inc() }

func ObserveInvalidation(layer, op string, err error) {
	res := "ok"
	if err != nil {
		res = "error"
	}
	invalidations.WithLabelValues(layer, op, res).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
