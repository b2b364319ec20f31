package goAuthClient

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by goAuthClient APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts failed logins.
	MetricLoginFailure
	// MetricLogout counts Logout calls.
	MetricLogout
	// MetricRenewalStarted counts renewal cycles started (one backend call each).
	MetricRenewalStarted
	// MetricRenewalSuccess counts cycles that stored a new pair.
	MetricRenewalSuccess
	// MetricRenewalFailure counts cycles that failed and cleared the session.
	MetricRenewalFailure
	// MetricRenewalJoined counts callers that joined a running cycle instead of starting one.
	MetricRenewalJoined
	// MetricBackgroundRenewal counts background renewals started for aging tokens.
	MetricBackgroundRenewal
	// MetricBackgroundRenewalFailure counts background renewals that failed.
	MetricBackgroundRenewalFailure
	// MetricRequestAuthorized counts requests sent with a bearer token.
	MetricRequestAuthorized
	// MetricRequestRetried counts requests resent after an authentication rejection.
	MetricRequestRetried
	// MetricAuthorizationRejected counts requests rejected again after their retry.
	MetricAuthorizationRejected
	// MetricSessionCleared counts credential clears, explicit or after failure.
	MetricSessionCleared
	// MetricRenewalLatency is the renewal cycle latency histogram.
	MetricRenewalLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by goAuthClient APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot defines a public type used by goAuthClient APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters that are no-ops unless cfg.Enabled.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled describes the enabled operation and its observable behavior.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled describes the latencyenabled operation and its observable behavior.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc describes the inc operation and its observable behavior.
//
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add increments id by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the histogram for id. Only MetricRenewalLatency has a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRenewalLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns one counter; 0 for a nil receiver or unknown id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram. Values are read individually, so a
// snapshot taken during a renewal may be off by one between related counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricRenewalLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRenewalLatency].buckets[i])
		}
		s.Histograms[MetricRenewalLatency] = buckets
	}

	return s
}

// Upper bounds: 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 10:
		return 0
	case ms <= 25:
		return 1
	case ms <= 50:
		return 2
	case ms <= 100:
		return 3
	case ms <= 250:
		return 4
	case ms <= 500:
		return 5
	case ms <= 1000:
		return 6
	default:
		return 7
	}
}
