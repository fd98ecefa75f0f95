// Package metrics provides the centralized Prometheus registry reference for
// the Propheseer client. All metrics are defined in their respective packages
// (client, ratelimit) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - propheseer_requests_total (CounterVec: endpoint, status): API requests by outcome
//   - propheseer_request_duration_seconds (HistogramVec: endpoint): request latency
//   - propheseer_errors_total (CounterVec: class): failed requests by error class
//
// Retry Metrics (pkg/client):
//   - propheseer_retries_total (CounterVec: error_class): retries by triggering class
//   - propheseer_retry_backoff_seconds (Histogram): backoff durations applied
//   - propheseer_retry_exhausted_total (Counter): requests that ran out of attempts
//
// Rate Limit Metrics (pkg/ratelimit):
//   - propheseer_ratelimit_remaining_day (GaugeVec: plan): last observed daily quota
//   - propheseer_ratelimit_remaining_minute (GaugeVec: plan): last observed minute quota
//   - propheseer_credit_balance_cents (GaugeVec: plan): last observed credit balance
