package internaldefs

import (
	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// CounterDef names one counter for every exporter.
type CounterDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// HistogramDef names one histogram for every exporter.
type HistogramDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// Namespace prefixes every exported metric name.
const Namespace = "goauthclient"

// AuditDroppedName is the counter exported from Client.AuditDropped.
const AuditDroppedName = Namespace + "_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: goAuthClient.MetricLoginSuccess, Name: Namespace + "_login_success_total", Help: "Successful logins."},
	{ID: goAuthClient.MetricLoginFailure, Name: Namespace + "_login_failure_total", Help: "Failed logins."},
	{ID: goAuthClient.MetricLogout, Name: Namespace + "_logout_total", Help: "Logout calls."},
	{ID: goAuthClient.MetricRenewalStarted, Name: Namespace + "_renewal_started_total", Help: "Renewal cycles started; one backend call each."},
	{ID: goAuthClient.MetricRenewalSuccess, Name: Namespace + "_renewal_success_total", Help: "Renewal cycles that stored a new pair."},
	{ID: goAuthClient.MetricRenewalFailure, Name: Namespace + "_renewal_failure_total", Help: "Renewal cycles that failed and cleared the session."},
	{ID: goAuthClient.MetricRenewalJoined, Name: Namespace + "_renewal_joined_total", Help: "Callers that joined a running renewal cycle."},
	{ID: goAuthClient.MetricBackgroundRenewal, Name: Namespace + "_background_renewal_total", Help: "Background renewals started for aging tokens."},
	{ID: goAuthClient.MetricBackgroundRenewalFailure, Name: Namespace + "_background_renewal_failure_total", Help: "Background renewals that failed."},
	{ID: goAuthClient.MetricRequestAuthorized, Name: Namespace + "_request_authorized_total", Help: "Requests sent with a bearer token."},
	{ID: goAuthClient.MetricRequestRetried, Name: Namespace + "_request_retried_total", Help: "Requests resent after an authentication rejection."},
	{ID: goAuthClient.MetricAuthorizationRejected, Name: Namespace + "_authorization_rejected_total", Help: "Requests rejected again after their retry."},
	{ID: goAuthClient.MetricSessionCleared, Name: Namespace + "_session_cleared_total", Help: "Credential clears, explicit or after failure."},
}

var HistogramDefs = []HistogramDef{
	{ID: goAuthClient.MetricRenewalLatency, Name: Namespace + "_renewal_latency_seconds", Help: "Renewal cycle latency."},
}

// HistogramBounds are the upper bounds in seconds, matching the client's buckets.
var HistogramBounds = []string{
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds made safe for metric names.
var HistogramBoundSuffix = []string{
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into Prometheus-style running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
