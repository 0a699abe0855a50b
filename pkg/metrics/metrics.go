// Package metrics provides the centralized Prometheus registry reference for
// the batch engine. All metrics are defined in their owning packages (client,
// batch) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the batch engine.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - portal_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - portal_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - portal_errors_total{class} (Counter): Errors by class (client, server, network, aborted)
//
// Retry Metrics (pkg/client):
//   - portal_retries_total{error_class} (Counter): Retry attempts by error class
//   - portal_retry_exhausted_total{error_class} (Counter): Operations that exhausted max retries
//   - portal_aborted_operations_total (Counter): Operations resolved by the abort signal
//
// Batch Metrics (pkg/batch):
//   - batch_operations_total{kind, outcome} (Counter): Completed operations by kind and outcome
//   - batch_duration_seconds{kind} (Histogram): Whole-batch duration by operation kind
//   - batch_operations_inflight (Gauge): Operations currently executing
//
// Example Prometheus Queries:
//
//   # Operation Failure Rate
//   sum(rate(batch_operations_total{outcome="failed"}[5m])) /
//   sum(rate(batch_operations_total[5m]))
//
//   # Retry Pressure
//   rate(portal_retries_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(portal_request_duration_seconds_bucket[5m]))
//
//   # Current Concurrency
//   batch_operations_inflight
