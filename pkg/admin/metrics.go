package admin

import (
	"strconv"
	"strings"
	"time"

	"github.com/getimposd/imposd/pkg/metrics"
)

// recordAdminRequest feeds the management API counters. Like the engine's
// helpers it tolerates an uninitialized metrics registry.
func recordAdminRequest(method, path string, status int, elapsed time.Duration) {
	p := metricPath(path)
	if metrics.AdminRequestsTotal != nil {
		if vec, err := metrics.AdminRequestsTotal.WithLabels(method, p, strconv.Itoa(status)); err == nil {
			_ = vec.Inc()
		}
	}
	if metrics.AdminRequestDuration != nil {
		if vec, err := metrics.AdminRequestDuration.WithLabels(method, p); err == nil {
			vec.Observe(elapsed.Seconds())
		}
	}
}

// metricPath collapses numeric path segments (imposter ports, stub
// indexes) so the path label set stays bounded.
func metricPath(path string) string {
	parts := strings.Split(path, "/")
	changed := false
	for i, seg := range parts {
		if seg == "" {
			continue
		}
		if _, err := strconv.Atoi(seg); err == nil {
			parts[i] = "{n}"
			changed = true
		}
	}
	if !changed {
		return path
	}
	return strings.Join(parts, "/")
}
