// Package metrics provides the centralized Prometheus registry reference for
// the harvest client. All metrics are defined in their owning packages
// (harvest, ratelimit, cache) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the harvest client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/harvest):
//   - harvest_requests_total{status} (Counter): Paged API calls by HTTP status
//   - harvest_request_duration_seconds (Histogram): Paged API call duration
//   - harvest_transport_errors_total{kind} (Counter): Transport failures by
//     classification (timeout, host-resolution, connection-refused, tls,
//     receive, too-many-redirects, cancelled, invalid-url, generic)
//
// Harvest Progress Metrics (pkg/harvest):
//   - harvest_pages_total (Counter): Pages harvested
//   - harvest_items_total (Counter): Items yielded
//   - harvest_repartitions_total (Counter): Initial-query re-issues for new
//     slices
//
// Rate Limit Metrics (pkg/ratelimit):
//   - harvest_rate_limit_waits_total (Counter): Calls that waited for budget
//   - harvest_rate_limit_wait_seconds (Histogram): Time spent waiting
//   - harvest_rate_limit_shared_budget_used (Gauge): Calls consumed from the
//     shared Redis budget in the current window
//
// Cache Metrics (pkg/cache):
//   - harvest_cache_hits_total (Counter): Cache hits
//   - harvest_cache_misses_total (Counter): Cache misses
//   - harvest_cache_size_bytes (Gauge): Bytes written to the cache
//   - harvest_cache_revalidations_total (Counter): 304 revalidations of
//     stale entries
//   - harvest_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(harvest_cache_hits_total[5m])) /
//   (sum(rate(harvest_cache_hits_total[5m])) + sum(rate(harvest_cache_misses_total[5m])))
//
//   # Transport Error Rate by Kind
//   rate(harvest_transport_errors_total[5m])
//
//   # P95 Call Latency
//   histogram_quantile(0.95, rate(harvest_request_duration_seconds_bucket[5m]))
//
//   # Items per Second Across All Harvests
//   rate(harvest_items_total[5m])
