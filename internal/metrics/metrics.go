// Package metrics declares the Prometheus instruments exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Upstream API
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armory_upstream_requests_total",
			Help: "Battle.net API requests by endpoint and status code",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "armory_upstream_request_duration_seconds",
			Help:    "Battle.net API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armory_token_refreshes_total",
			Help: "Client-credential token refreshes by result",
		},
		[]string{"result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "armory_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armory_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Blob cache
	BlobCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armory_blob_cache_lookups_total",
			Help: "Blob cache lookups by result (hit, miss, volatile)",
		},
		[]string{"result"},
	)

	BlobUploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "armory_blob_upload_bytes_total",
			Help: "Bytes written to the object store",
		},
	)

	// Persistence
	TransactionChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armory_transaction_chunks_total",
			Help: "Transactional write chunks by result",
		},
		[]string{"result"},
	)

	TransactionRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "armory_transaction_retries_total",
			Help: "Transactional write retries after throttling",
		},
	)

	// Batch jobs
	SyncItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armory_sync_items_total",
			Help: "Items processed by batch jobs by outcome",
		},
		[]string{"job", "outcome"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "armory_sync_duration_seconds",
			Help:    "Batch job run time",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"job"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
