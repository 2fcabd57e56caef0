package limiters

import "time"

// LockoutConfig holds the progressive lockout parameters.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutConfig locks for 15 minutes after 5 consecutive failures.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{Enabled: true, Threshold: 5, Duration: 15 * time.Minute}
}

// LockoutState is the slice of a credential record the policy reads and writes.
type LockoutState struct {
	Attempts    int
	LockedUntil *time.Time
}

// LockoutPolicy is a pure transition function over LockoutState. It does no
// I/O; callers apply the returned state atomically with their store.
type LockoutPolicy struct {
	config LockoutConfig
}

// NewLockoutPolicy creates a policy. A disabled policy never locks.
func NewLockoutPolicy(cfg LockoutConfig) *LockoutPolicy {
	return &LockoutPolicy{config: cfg}
}

// Locked reports whether s is locked at now, and for how long.
func (p *LockoutPolicy) Locked(s LockoutState, now time.Time) (bool, time.Duration) {
	if s.LockedUntil == nil || !now.Before(*s.LockedUntil) {
		return false, 0
	}
	return true, s.LockedUntil.Sub(now)
}

// RecordFailure applies one failed attempt. While locked the state is
// returned unchanged: attempts are not consumed and the lock is not
// extended. lockedNow is true only for the failure that engages the lock.
func (p *LockoutPolicy) RecordFailure(s LockoutState, now time.Time) (next LockoutState, lockedNow bool) {
	if locked, _ := p.Locked(s, now); locked {
		return s, false
	}

	// An expired lock is treated as never having been set.
	next = LockoutState{Attempts: s.Attempts + 1}
	if !p.config.Enabled || p.config.Threshold <= 0 {
		return next, false
	}
	if next.Attempts >= p.config.Threshold {
		until := now.Add(p.config.Duration)
		return LockoutState{Attempts: 0, LockedUntil: &until}, true
	}
	return next, false
}

// RecordSuccess clears the counter and any expired lock.
func (p *LockoutPolicy) RecordSuccess(LockoutState) LockoutState {
	return LockoutState{}
}

// Unlock clears the counter and lock unconditionally.
func (p *LockoutPolicy) Unlock(LockoutState) LockoutState {
	return LockoutState{}
}
