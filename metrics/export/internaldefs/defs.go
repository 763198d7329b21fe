package internaldefs

import (
	sessiongate "github.com/MrEthical07/sessiongate"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: sessiongate.MetricTokenIssued, Name: "sessiongate_token_issued_total", Help: "Session tokens minted and persisted."},
	{ID: sessiongate.MetricIssueFailure, Name: "sessiongate_issue_failure_total", Help: "Issuance attempts that failed."},
	{ID: sessiongate.MetricIssueRateLimited, Name: "sessiongate_issue_rate_limited_total", Help: "Issuance attempts rejected by the issuance limiter."},
	{ID: sessiongate.MetricValidateSuccess, Name: "sessiongate_validate_success_total", Help: "Accepted session tokens."},
	{ID: sessiongate.MetricValidateMissing, Name: "sessiongate_validate_missing_total", Help: "Requests without a session token."},
	{ID: sessiongate.MetricValidateInvalid, Name: "sessiongate_validate_invalid_total", Help: "Unknown or malformed session tokens."},
	{ID: sessiongate.MetricValidateExpired, Name: "sessiongate_validate_expired_total", Help: "Session tokens rejected past expiry."},
	{ID: sessiongate.MetricValidateUnavailable, Name: "sessiongate_validate_unavailable_total", Help: "Validations rejected because the token store failed."},
	{ID: sessiongate.MetricExpiredPurged, Name: "sessiongate_expired_purged_total", Help: "Expired records deleted on the read path."},
	{ID: sessiongate.MetricTokenRevoked, Name: "sessiongate_token_revoked_total", Help: "Explicit revocations."},
	{ID: sessiongate.MetricRateLimitHit, Name: "sessiongate_rate_limit_hit_total", Help: "Requests rejected by the general limiter."},
	{ID: sessiongate.MetricRateLimitBackendError, Name: "sessiongate_rate_limit_backend_error_total", Help: "Limiter backend failures."},
	{ID: sessiongate.MetricCookieRejected, Name: "sessiongate_cookie_rejected_total", Help: "Session cookies that failed verification."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: sessiongate.MetricValidateLatency, Name: "sessiongate_validate_latency_seconds", Help: "Token validation latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "sessiongate_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// BucketCount matches the engine histogram layout.
const BucketCount = 8

// HistogramBounds are the upper bounds of the engine latency buckets, in
// seconds. The last bucket is unbounded.
var HistogramBounds = []string{
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"0.05",
	"+Inf",
}

// HistogramUpperBounds is HistogramBounds without the +Inf bucket.
var HistogramUpperBounds = []float64{0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05}

// HistogramBoundSuffix is HistogramBounds rendered for instrument names.
var HistogramBoundSuffix = []string{
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_005",
	"0_01",
	"0_05",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
