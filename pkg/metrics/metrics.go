// Package metrics exposes the Prometheus registry shared by all ghnotify
// packages. Metrics are defined in their respective packages (client, cache,
// ratelimit, pagination, block) via promauto and land in the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by ghnotify.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects everything registered in Registry.
var Gatherer = prometheus.DefaultGatherer

var buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "ghnotify_build_info",
	Help: "Constant 1, labelled with the running ghnotify version",
}, []string{"version"})

func init() {
	Registry.MustRegister(buildInfo)
}

// SetVersion publishes version through ghnotify_build_info.
func SetVersion(version string) {
	buildInfo.Reset()
	buildInfo.WithLabelValues(version).Set(1)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Build Metrics (pkg/metrics):
//   - ghnotify_build_info{version} (Gauge): Constant 1 for the running version
//
// Poll Metrics (pkg/block):
//   - ghnotify_polls_total{result} (Counter): Poll cycles by result (success, error, skipped)
//   - ghnotify_poll_duration_seconds (Histogram): Duration of a full poll cycle
//   - ghnotify_notifications{block, reason} (Gauge): Per-reason counts of the last successful poll
//   - ghnotify_notifications_total{block} (Gauge): Overall count of the last successful poll
//
// Pagination Metrics (pkg/pagination):
//   - ghnotify_pages_fetched_total (Counter): Notification pages fetched
//   - ghnotify_page_walk_errors_total (Counter): Page walks terminated by an error
//
// Request Metrics (pkg/client):
//   - ghnotify_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - ghnotify_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - ghnotify_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - ghnotify_rate_limit_remaining (Gauge): Requests remaining in the current window
//   - ghnotify_rate_limit_blocks_total (Counter): Requests blocked with the window exhausted
//   - ghnotify_rate_limit_throttles_total (Counter): Requests delayed in the warning range
//
// Cache Metrics (pkg/cache):
//   - ghnotify_cache_hits_total (Counter): Page cache hits
//   - ghnotify_cache_misses_total (Counter): Page cache misses
//   - ghnotify_cache_size_bytes (Counter): Bytes written to the page cache
//   - ghnotify_304_responses_total (Counter): 304 Not Modified responses
//   - ghnotify_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Poll failure ratio
//   sum(rate(ghnotify_polls_total{result="error"}[15m])) / sum(rate(ghnotify_polls_total[15m]))
//
//   # Rate limit headroom
//   ghnotify_rate_limit_remaining < 100
//
//   # 304 Response Rate
//   rate(ghnotify_304_responses_total[5m]) / rate(ghnotify_requests_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(ghnotify_request_duration_seconds_bucket[5m]))
