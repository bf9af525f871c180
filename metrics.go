package authgate

import "sync/atomic"

// MetricID identifies one in-process counter. IDs are dense and stable; the
// otel export package maps them to named instruments.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful credential checks.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected credential checks.
	MetricLoginFailure
	// MetricTokenIssued counts minted session tokens.
	MetricTokenIssued
	// MetricValidateSuccess counts tokens that passed the full verifier chain.
	MetricValidateSuccess
	// MetricValidateMalformed counts signature/structure rejections.
	MetricValidateMalformed
	// MetricValidateExpired counts natural-expiry rejections.
	MetricValidateExpired
	// MetricValidateRevoked counts revocation rejections (single-session or
	// logout-everywhere marker).
	MetricValidateRevoked
	// MetricValidateStoreError counts fail-closed verifications: Redis was
	// unreachable while checking revocation state.
	MetricValidateStoreError
	// MetricLogout counts single-session revocations.
	MetricLogout
	// MetricLogoutAll counts logout-everywhere marker writes.
	MetricLogoutAll
	// MetricRateAllowed counts governed requests within budget.
	MetricRateAllowed
	// MetricRateLimited counts governed requests rejected over budget.
	MetricRateLimited
	// MetricRateFailOpen counts governor decisions taken while Redis was
	// unreachable (requests allowed through unthrottled).
	MetricRateFailOpen

	metricCount
)

// Metrics is a fixed-size registry of atomic counters. Inc is wait-free and
// safe for concurrent use; Snapshot is a point-in-time copy for exporters.
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

func newMetrics() *Metrics {
	return &Metrics{}
}

// Inc adds one to the counter. Unknown IDs are ignored.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies all counters. The result is independent of later Inc calls.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricCount),
	}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
