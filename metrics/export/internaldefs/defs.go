package internaldefs

import (
	"github.com/skvrent/staffauth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   staffauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   staffauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: staffauth.MetricLoginAttempt, Name: "staffauth_login_attempt_total", Help: "Login endpoint calls, one per probed role."},
	{ID: staffauth.MetricLoginSuccess, Name: "staffauth_login_success_total", Help: "Logins that produced a session."},
	{ID: staffauth.MetricLoginFailure, Name: "staffauth_login_failure_total", Help: "Rejected logins."},
	{ID: staffauth.MetricLoginRoleFallback, Name: "staffauth_login_role_fallback_total", Help: "Moves to the next role after a rejection."},
	{ID: staffauth.MetricSessionCreated, Name: "staffauth_session_created_total", Help: "Stored sessions."},
	{ID: staffauth.MetricLogout, Name: "staffauth_logout_total", Help: "Logout operations."},
	{ID: staffauth.MetricActivationRequest, Name: "staffauth_activation_request_total", Help: "Accepted activation code requests."},
	{ID: staffauth.MetricActivationRequestFailure, Name: "staffauth_activation_request_failure_total", Help: "Failed activation code requests."},
	{ID: staffauth.MetricOTPVerify, Name: "staffauth_otp_verify_total", Help: "Accepted activation codes."},
	{ID: staffauth.MetricOTPVerifyFailure, Name: "staffauth_otp_verify_failure_total", Help: "Rejected or malformed activation codes."},
	{ID: staffauth.MetricPasswordSet, Name: "staffauth_password_set_total", Help: "Passwords set during activation."},
	{ID: staffauth.MetricPasswordSetFailure, Name: "staffauth_password_set_failure_total", Help: "Failed password set attempts."},
	{ID: staffauth.MetricRequestInFlight, Name: "staffauth_request_in_flight_total", Help: "Submissions refused while the same action was running."},
	{ID: staffauth.MetricLoginThrottled, Name: "staffauth_login_throttled_total", Help: "Logins refused after repeated failures."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: staffauth.MetricLoginLatency, Name: "staffauth_login_latency_seconds", Help: "Login latency across all probed roles."},
}

// HistogramBounds are the upper bounds, in seconds, of the latency buckets.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundValues are HistogramBounds as numbers, without +Inf.
var HistogramBoundValues = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing
// buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
