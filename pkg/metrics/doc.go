// Package metrics provides Prometheus-compatible metrics collection for the
// imposter server.
//
// This package implements the Prometheus text exposition format (text/plain;
// version=0.0.4) without any external dependencies, using only the standard
// library.
//
// Supported metric types:
//   - Counter: monotonically increasing value (e.g., request counts)
//   - Gauge: value that can go up or down (e.g., running imposters)
//   - Histogram: distribution of values with configurable buckets (e.g., latencies)
//
// All metrics are thread-safe and can be updated from multiple goroutines.
//
// # Default Metrics
//
// The package provides pre-defined metrics for tracking imposter activity:
//
//   - imposd_requests_total: Counter for imposter requests (labels: protocol, port, outcome)
//   - imposd_request_duration_seconds: Histogram for resolution latency (labels: protocol, port)
//   - imposd_imposters_total: Gauge for running imposters (labels: protocol)
//   - imposd_proxy_requests_total: Counter for forwarded requests (labels: mode, outcome)
//   - imposd_match_misses_total: Counter for unmatched requests (labels: protocol, port)
//
// # Usage
//
//	// Initialize the default metrics registry
//	registry := metrics.Init()
//
//	// Record a resolved request
//	vec, _ := metrics.RequestsTotal.WithLabels("http", "4545", "matched")
//	_ = vec.Inc()
//
//	// Register the /metrics endpoint
//	http.Handle("GET /metrics", registry.Handler())
//
// Custom metrics can also be created:
//
//	registry := metrics.NewRegistry()
//	counter := registry.NewCounter("my_counter", "Description of counter", "label1", "label2")
package metrics
