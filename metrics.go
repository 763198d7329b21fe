package sessiongate

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by sessiongate APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricTokenIssued counts tokens minted and persisted.
	MetricTokenIssued MetricID = iota
	// MetricIssueFailure counts issuance attempts that failed closed.
	MetricIssueFailure
	// MetricIssueRateLimited counts issuance attempts rejected by the issuance limiter.
	MetricIssueRateLimited
	// MetricValidateSuccess counts accepted tokens.
	MetricValidateSuccess
	// MetricValidateMissing counts requests without a token.
	MetricValidateMissing
	// MetricValidateInvalid counts unknown or malformed tokens.
	MetricValidateInvalid
	// MetricValidateExpired counts tokens rejected past their expiry.
	MetricValidateExpired
	// MetricValidateUnavailable counts validations rejected because the store failed.
	MetricValidateUnavailable
	// MetricExpiredPurged counts expired records deleted on the read path.
	MetricExpiredPurged
	// MetricTokenRevoked counts explicit revocations.
	MetricTokenRevoked
	// MetricRateLimitHit counts general-limiter rejections.
	MetricRateLimitHit
	// MetricRateLimitBackendError counts limiter backend failures on either limiter.
	MetricRateLimitBackendError
	// MetricCookieRejected counts session cookies that failed signature or claim checks.
	MetricCookieRejected
	// MetricValidateLatency is an exported constant or variable used by the session engine.
	MetricValidateLatency
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

// Metrics holds lock-free counters and the validate latency histogram.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram for id. Only MetricValidateLatency has
// a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricValidateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
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
		if id == MetricValidateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

// Validation is a single store round trip, so buckets are finer than a
// request-level histogram.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 250:
		return 0
	case us <= 500:
		return 1
	case us <= 1000:
		return 2
	case us <= 2500:
		return 3
	case us <= 5000:
		return 4
	case us <= 10000:
		return 5
	case us <= 50000:
		return 6
	default:
		return 7
	}
}
