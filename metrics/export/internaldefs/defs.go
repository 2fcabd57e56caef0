package internaldefs

import (
	"github.com/MrEthical07/forumauth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   forumauth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   forumauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: forumauth.MetricRegisterSuccess, Name: "forumauth_register_success_total", Help: "Accounts created."},
	{ID: forumauth.MetricRegisterDuplicate, Name: "forumauth_register_duplicate_total", Help: "Registrations rejected for a taken email or username."},
	{ID: forumauth.MetricRegisterPolicyRejected, Name: "forumauth_register_policy_rejected_total", Help: "Registrations rejected by the password policy."},
	{ID: forumauth.MetricRegisterRateLimited, Name: "forumauth_register_rate_limited_total", Help: "Registrations rejected by the sign-up throttle."},
	{ID: forumauth.MetricLoginSuccess, Name: "forumauth_login_success_total", Help: "Successful logins."},
	{ID: forumauth.MetricLoginFailure, Name: "forumauth_login_failure_total", Help: "Logins rejected for bad credentials."},
	{ID: forumauth.MetricLoginLockedRejected, Name: "forumauth_login_locked_rejected_total", Help: "Logins rejected because the account was locked."},
	{ID: forumauth.MetricAccountLocked, Name: "forumauth_account_locked_total", Help: "Lockouts engaged."},
	{ID: forumauth.MetricAccountUnlocked, Name: "forumauth_account_unlocked_total", Help: "Administrative unlocks."},
	{ID: forumauth.MetricPasswordHashUpgraded, Name: "forumauth_password_hash_upgraded_total", Help: "Stored hashes rehashed with current parameters."},
	{ID: forumauth.MetricRefreshSuccess, Name: "forumauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: forumauth.MetricRefreshFailure, Name: "forumauth_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: forumauth.MetricRefreshReplayRejected, Name: "forumauth_refresh_replay_rejected_total", Help: "Refresh tokens presented after revocation."},
	{ID: forumauth.MetricLogout, Name: "forumauth_logout_total", Help: "Logouts."},
	{ID: forumauth.MetricPasswordChangeSuccess, Name: "forumauth_password_change_success_total", Help: "Successful password changes."},
	{ID: forumauth.MetricPasswordChangeInvalidOld, Name: "forumauth_password_change_invalid_old_total", Help: "Password changes rejected for a wrong current password."},
	{ID: forumauth.MetricPasswordChangeReuseRejected, Name: "forumauth_password_change_reuse_rejected_total", Help: "Password changes rejected for reusing the current password."},
	{ID: forumauth.MetricValidateSuccess, Name: "forumauth_validate_success_total", Help: "Access tokens accepted."},
	{ID: forumauth.MetricValidateFailure, Name: "forumauth_validate_failure_total", Help: "Access tokens rejected."},
	{ID: forumauth.MetricHashUnavailable, Name: "forumauth_hash_unavailable_total", Help: "Operations that could not obtain a hashing slot."},
}

var HistogramDefs = []HistogramDef{
	{ID: forumauth.MetricValidateLatency, Name: "forumauth_validate_latency_seconds", Help: "Access token validation latency."},
	{ID: forumauth.MetricHashLatency, Name: "forumauth_hash_latency_seconds", Help: "Password hash and verify latency."},
}

// HistogramBounds are the upper bounds of the engine's eight buckets.
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

// HistogramBoundSuffix names the bounds for instrument names that cannot
// carry labels.
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

// NormalizeBuckets copies up to eight raw buckets, zero-filling missing ones.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
