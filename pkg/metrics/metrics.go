// Package metrics holds the Prometheus collectors shared across the service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RPCCalls counts chain RPC round-trips by method.
	RPCCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_rpc_calls_total",
			Help: "Number of chain RPC calls issued, by method.",
		},
		[]string{"method"},
	)

	// RPCErrors counts failed chain RPC round-trips by method.
	RPCErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_rpc_errors_total",
			Help: "Number of chain RPC calls that returned an error, by method.",
		},
		[]string{"method"},
	)

	// HoldingUnitFailures counts (protocol, block) units that were
	// zero-filled after exhausting their retry budget.
	HoldingUnitFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holdings_unit_failures_total",
			Help: "Number of per-protocol holdings fetches zero-filled after retries.",
		},
		[]string{"protocol"},
	)

	// CacheHits counts memoizer hits.
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memo_cache_hits_total",
		Help: "Number of memoized calls served from cache.",
	})

	// CacheMisses counts memoizer misses.
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memo_cache_misses_total",
		Help: "Number of memoized calls that invoked the underlying function.",
	})

	// HTTPDuration observes request latency by route and status.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "status"},
	)
)

// MustRegisterMetrics registers every collector with the default registry.
// Called once from main before the server starts.
func MustRegisterMetrics() {
	prometheus.MustRegister(
		RPCCalls,
		RPCErrors,
		HoldingUnitFailures,
		CacheHits,
		CacheMisses,
		HTTPDuration,
	)
}
