package metrics

import (
	"sync"
	"time"
)

// Default metrics for the imposter server.
// These are initialized by calling Init().
//
// # Label Conventions
//
// All metric labels use lowercase values:
//
//   - protocol: http, https, tcp, smtp
//   - port: decimal port number of the imposter
//   - outcome: matched, default, error
//   - mode: proxyOnce, proxyAlways, proxyTransparent (camelCase wire names)
var (
	// RequestsTotal counts requests served by imposters.
	// Labels: protocol, port, outcome
	RequestsTotal *Counter

	// RequestDuration tracks imposter request resolution time in seconds.
	// Labels: protocol, port
	RequestDuration *Histogram

	// ImpostersTotal is a gauge of the number of running imposters.
	// Labels: protocol
	ImpostersTotal *Gauge

	// ProxyRequestsTotal counts requests forwarded to proxy targets.
	// Labels: mode, outcome (ok, error)
	ProxyRequestsTotal *Counter

	// RecordedResponsesTotal counts responses captured by proxy stubs.
	RecordedResponsesTotal *Counter

	// MatchMissesTotal counts requests that matched no stub and fell
	// through to the default response.
	// Labels: protocol, port
	MatchMissesTotal *Counter

	// AdminRequestsTotal counts management API requests.
	// Labels: method, path, status
	AdminRequestsTotal *Counter

	// AdminRequestDuration tracks management API request durations in seconds.
	// Labels: method, path
	AdminRequestDuration *Histogram

	// ErrorsTotal counts errors by type.
	// Labels: type (bind, proxy, inject, internal)
	ErrorsTotal *Counter

	// UptimeSeconds is a gauge of the server uptime in seconds.
	UptimeSeconds *Gauge

	// RuntimeCollectorInstance is the Go runtime metrics collector.
	RuntimeCollectorInstance *RuntimeCollector

	// runtimeCollectorStop stops the runtime collector goroutine.
	runtimeCollectorStop func()

	// defaultRegistry is the global metrics registry.
	defaultRegistry *Registry

	// initOnce ensures Init() is only called once.
	initOnce sync.Once
)

// Init initializes the default metrics and returns the registry.
// This function is idempotent and safe to call multiple times.
func Init() *Registry {
	initOnce.Do(func() {
		defaultRegistry = NewRegistry()

		RequestsTotal = defaultRegistry.NewCounter(
			"imposd_requests_total",
			"Total number of requests served by imposters",
			"protocol", "port", "outcome",
		)

		RequestDuration = defaultRegistry.NewHistogram(
			"imposd_request_duration_seconds",
			"Time spent resolving imposter requests in seconds",
			DefaultBuckets,
			"protocol", "port",
		)

		ImpostersTotal = defaultRegistry.NewGauge(
			"imposd_imposters_total",
			"Number of running imposters",
			"protocol",
		)

		ProxyRequestsTotal = defaultRegistry.NewCounter(
			"imposd_proxy_requests_total",
			"Total number of requests forwarded to proxy targets",
			"mode", "outcome",
		)

		RecordedResponsesTotal = defaultRegistry.NewCounter(
			"imposd_recorded_responses_total",
			"Total number of responses captured by proxy stubs",
		)

		MatchMissesTotal = defaultRegistry.NewCounter(
			"imposd_match_misses_total",
			"Number of requests that matched no stub",
			"protocol", "port",
		)

		AdminRequestsTotal = defaultRegistry.NewCounter(
			"imposd_admin_requests_total",
			"Total number of management API requests",
			"method", "path", "status",
		)

		AdminRequestDuration = defaultRegistry.NewHistogram(
			"imposd_admin_request_duration_seconds",
			"Duration of management API requests in seconds",
			DefaultBuckets,
			"method", "path",
		)

		ErrorsTotal = defaultRegistry.NewCounter(
			"imposd_errors_total",
			"Total number of errors by type",
			"type",
		)

		UptimeSeconds = defaultRegistry.NewGauge(
			"imposd_uptime_seconds",
			"Server uptime in seconds",
		)

		RuntimeCollectorInstance = NewRuntimeCollector(defaultRegistry, UptimeSeconds)
		runtimeCollectorStop = RuntimeCollectorInstance.StartCollector(10 * time.Second)
	})

	return defaultRegistry
}

// DefaultRegistry returns the default metrics registry.
// Returns nil if Init() has not been called.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Reset resets all default metrics. Useful for testing.
// This also resets the initOnce, allowing Init() to be called again.
func Reset() {
	if runtimeCollectorStop != nil {
		runtimeCollectorStop()
		runtimeCollectorStop = nil
	}

	initOnce = sync.Once{}
	defaultRegistry = nil
	RequestsTotal = nil
	RequestDuration = nil
	ImpostersTotal = nil
	ProxyRequestsTotal = nil
	RecordedResponsesTotal = nil
	MatchMissesTotal = nil
	AdminRequestsTotal = nil
	AdminRequestDuration = nil
	ErrorsTotal = nil
	UptimeSeconds = nil
	RuntimeCollectorInstance = nil
}
