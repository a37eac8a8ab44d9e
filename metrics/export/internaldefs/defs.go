package internaldefs

import (
	authkit "github.com/bezrook/authkit"
)

// CounterDef binds one engine counter to its exported name.
type CounterDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine histogram to its exported name.
type HistogramDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authkit.MetricRegisterSuccess, Name: "authkit_register_success_total", Help: "Successful account registrations."},
	{ID: authkit.MetricRegisterDuplicate, Name: "authkit_register_duplicate_total", Help: "Registrations rejected as duplicate logins."},
	{ID: authkit.MetricLoginSuccess, Name: "authkit_login_success_total", Help: "Successful login attempts."},
	{ID: authkit.MetricLoginFailure, Name: "authkit_login_failure_total", Help: "Failed login attempts."},
	{ID: authkit.MetricLoginSecondFactorPending, Name: "authkit_login_second_factor_pending_total", Help: "Logins awaiting a second-factor code."},
	{ID: authkit.MetricTokenRejected, Name: "authkit_token_rejected_total", Help: "Bearer tokens rejected during validation."},
	{ID: authkit.MetricTOTPEnrollStarted, Name: "authkit_totp_enroll_started_total", Help: "Started authenticator enrollments."},
	{ID: authkit.MetricTOTPEnrollConfirmed, Name: "authkit_totp_enroll_confirmed_total", Help: "Confirmed authenticator enrollments."},
	{ID: authkit.MetricTOTPEnrollExpired, Name: "authkit_totp_enroll_expired_total", Help: "Enrollments discarded after the confirmation window elapsed."},
	{ID: authkit.MetricTOTPSuccess, Name: "authkit_totp_success_total", Help: "Successful one-time-code verifications."},
	{ID: authkit.MetricTOTPFailure, Name: "authkit_totp_failure_total", Help: "Failed one-time-code verifications."},
	{ID: authkit.MetricSessionCreated, Name: "authkit_session_created_total", Help: "Created sessions."},
	{ID: authkit.MetricSessionTerminated, Name: "authkit_session_terminated_total", Help: "Terminated sessions."},
	{ID: authkit.MetricSessionTerminateMiss, Name: "authkit_session_terminate_miss_total", Help: "Termination attempts for unknown or foreign sessions."},
	{ID: authkit.MetricStoreUnavailable, Name: "authkit_store_unavailable_total", Help: "Operations failed by storage backend errors."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authkit.MetricValidateLatency, Name: "authkit_validate_latency_seconds", Help: "Token validation latency histogram."},
}

// HistogramBounds carries the upper bucket bounds in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix carries bound labels usable in instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed
// exporter width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form
// the Prometheus exposition format expects.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
