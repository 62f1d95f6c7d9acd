package engine

import (
	"strconv"
	"time"

	"github.com/getimposd/imposd/pkg/imposter"
	"github.com/getimposd/imposd/pkg/metrics"
)

// Outcome labels for imposd_requests_total.
const (
	outcomeMatched = "matched"
	outcomeDefault = "default"
	outcomeError   = "error"
)

// recordServed records one resolved imposter request. All helpers here
// tolerate an uninitialized metrics registry so the engine can run in
// tests without one.
func recordServed(proto imposter.Protocol, port int, outcome string, elapsed time.Duration) {
	p := string(proto)
	ps := strconv.Itoa(port)
	if metrics.RequestsTotal != nil {
		if vec, err := metrics.RequestsTotal.WithLabels(p, ps, outcome); err == nil {
			_ = vec.Inc()
		}
	}
	if metrics.RequestDuration != nil {
		if vec, err := metrics.RequestDuration.WithLabels(p, ps); err == nil {
			vec.Observe(elapsed.Seconds())
		}
	}
}

// recordMiss counts a request that matched no stub.
func recordMiss(proto imposter.Protocol, port int) {
	if metrics.MatchMissesTotal != nil {
		if vec, err := metrics.MatchMissesTotal.WithLabels(string(proto), strconv.Itoa(port)); err == nil {
			_ = vec.Inc()
		}
	}
}

// recordProxied counts a forwarded request by mode and outcome.
func recordProxied(mode imposter.ProxyMode, outcome string) {
	if metrics.ProxyRequestsTotal != nil {
		if vec, err := metrics.ProxyRequestsTotal.WithLabels(string(mode), outcome); err == nil {
			_ = vec.Inc()
		}
	}
}

// recordCapture counts one origin response recorded into a stub.
func recordCapture() {
	if metrics.RecordedResponsesTotal != nil {
		_ = metrics.RecordedResponsesTotal.Inc()
	}
}

// recordErrorKind counts an engine error by type (bind, proxy, inject,
// internal).
func recordErrorKind(kind string) {
	if metrics.ErrorsTotal != nil {
		if vec, err := metrics.ErrorsTotal.WithLabels(kind); err == nil {
			_ = vec.Inc()
		}
	}
}

// addImposterCount moves the live imposter gauge for one protocol.
func addImposterCount(proto imposter.Protocol, delta float64) {
	if metrics.ImpostersTotal != nil {
		if vec, err := metrics.ImpostersTotal.WithLabels(string(proto)); err == nil {
			vec.Add(delta)
		}
	}
}
