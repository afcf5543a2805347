// Package metrics provides the centralized Prometheus metrics registry
// for the checking pipeline. All metrics are defined in their
// respective packages (checker, cache, ratelimit, batch) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the pipeline.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Control Metrics (pkg/ratelimit):
//   - nameprobe_concurrency_limit (Gauge): Current permit limit of the adaptive controller
//   - nameprobe_request_delay_seconds (Gauge): Current inter-request pacing delay
//   - nameprobe_rate_adjustments_total{direction, cause} (Counter): Limit/delay adjustments
//   - nameprobe_permit_wait_seconds (Histogram): Time spent waiting for a permit
//
// Cache Metrics (pkg/cache):
//   - nameprobe_cache_hits_total{tier} (Counter): Cache hits by tier (memory, redis)
//   - nameprobe_cache_misses_total (Counter): Cache misses
//   - nameprobe_cache_evictions_total (Counter): Entries removed by capacity sweeps
//   - nameprobe_cache_entries (Gauge): Live entries in the memory tier
//   - nameprobe_cache_errors_total{operation} (Counter): Shared tier operation errors
//
// Check Metrics (pkg/checker):
//   - nameprobe_checks_total{outcome} (Counter): Completed checks by outcome
//   - nameprobe_check_duration_seconds (Histogram): Duration of successful attempts
//   - nameprobe_check_errors_total{category} (Counter): Failed attempts by category
//   - nameprobe_retries_total{category} (Counter): Retry attempts by category
//   - nameprobe_retry_exhausted_total (Counter): Checks that failed every attempt
//
// Batch Metrics (pkg/batch):
//   - nameprobe_batches_total (Counter): Dispatched batch waves
//   - nameprobe_batch_size (Histogram): Identifiers per dispatched wave
//   - nameprobe_run_duration_seconds (Histogram): Wall time of completed runs
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(nameprobe_cache_hits_total[5m])) /
//   (sum(rate(nameprobe_cache_hits_total[5m])) + sum(rate(nameprobe_cache_misses_total[5m])))
//
//   # Outcome Distribution
//   sum by (outcome) (rate(nameprobe_checks_total[5m]))
//
//   # Rate Limit Pressure
//   rate(nameprobe_check_errors_total{category="rate_limit"}[5m])
//
//   # P95 Check Latency
//   histogram_quantile(0.95, rate(nameprobe_check_duration_seconds_bucket[5m]))
//
//   # Live Concurrency Limit
//   nameprobe_concurrency_limit
