package internaldefs

import (
	"github.com/MrEthical07/siteguard"
)

// Series is one labelled value of a [Family].
type Series struct {
	ID siteguard.MetricID
	// Value is the label value. Empty for unlabelled families.
	Value string
}

// Family is a counter with zero or one label.
type Family struct {
	Name     string
	Help     string
	LabelKey string
	Series   []Series
}

// HistogramDef names a latency histogram.
type HistogramDef struct {
	ID   siteguard.MetricID
	Name string
	Help string
}

var Families = []Family{
	{
		Name:     "siteguard_sessions_total",
		Help:     "Session lifecycle events.",
		LabelKey: "event",
		Series: []Series{
			{siteguard.MetricSessionCreated, "created"},
			{siteguard.MetricSessionRefreshed, "refreshed"},
			{siteguard.MetricSessionDestroyed, "destroyed"},
			{siteguard.MetricSessionInvalid, "invalid"},
		},
	},
	{
		Name:     "siteguard_authz_decisions_total",
		Help:     "Authorization decisions.",
		LabelKey: "result",
		Series: []Series{
			{siteguard.MetricAuthzAllowed, "allowed"},
			{siteguard.MetricAuthzUnauthenticated, "unauthenticated"},
			{siteguard.MetricAuthzForbidden, "forbidden"},
		},
	},
	{
		Name:   "siteguard_csrf_tokens_issued_total",
		Help:   "CSRF tokens issued.",
		Series: []Series{{ID: siteguard.MetricCSRFIssued}},
	},
	{
		Name:     "siteguard_csrf_checks_total",
		Help:     "CSRF validations by outcome.",
		LabelKey: "result",
		Series: []Series{
			{siteguard.MetricCSRFValid, "valid"},
			{siteguard.MetricCSRFMissing, "missing"},
			{siteguard.MetricCSRFMismatch, "mismatch"},
			{siteguard.MetricCSRFInvalid, "invalid"},
		},
	},
	{
		Name:     "siteguard_rate_limit_checks_total",
		Help:     "Rate limit checks by outcome.",
		LabelKey: "result",
		Series: []Series{
			{siteguard.MetricRateLimitAllowed, "allowed"},
			{siteguard.MetricRateLimitRejected, "rejected"},
		},
	},
	{
		Name:     "siteguard_rate_limit_degraded_total",
		Help:     "Rate limit checks the shared store could not answer.",
		LabelKey: "mode",
		Series: []Series{
			{siteguard.MetricRateLimitFallback, "fallback"},
			{siteguard.MetricRateLimitFailOpen, "fail_open"},
		},
	},
	{
		Name:   "siteguard_rate_limit_swept_total",
		Help:   "Idle identifiers removed from the in-memory rate limit store.",
		Series: []Series{{ID: siteguard.MetricRateLimitSwept}},
	},
}

var HistogramDefs = []HistogramDef{
	{ID: siteguard.MetricCheckLimitLatency, Name: "siteguard_check_limit_latency_seconds", Help: "CheckLimit latency."},
}

const (
	AuditDroppedName = "siteguard_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

// BucketCount matches the engine histogram layout.
const BucketCount = 8

// HistogramBounds are the bucket upper bounds in seconds, as Prometheus renders them.
var HistogramBounds = [BucketCount]string{
	"0.001",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.5",
	"+Inf",
}

// Cumulative converts per-bucket counts into running totals. Missing buckets count
// as zero.
func Cumulative(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
