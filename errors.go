package forumauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/forumauth/password"
	"github.com/MrEthical07/forumauth/tokens"
)

var (
	// ErrValidation is returned for malformed or missing request fields.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateCredential is matched by every *DuplicateError.
	ErrDuplicateCredential = errors.New("credential already registered")
	// ErrConfirmMismatch is returned when password and confirmation differ.
	ErrConfirmMismatch = errors.New("password confirmation does not match")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountLocked is matched by every *LockedError.
	ErrAccountLocked = errors.New("account locked")
	// ErrUserNotFound is returned by CredentialStore implementations and by
	// flows whose subject no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrWrongCurrentPassword is returned by ChangePassword.
	ErrWrongCurrentPassword = errors.New("current password is incorrect")
	// ErrPasswordReuse is returned when the new password equals the current one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrRegistrationRateLimited is returned when the sign-up throttle trips.
	ErrRegistrationRateLimited = errors.New("registration rate limited")
	// ErrEngineNotReady is returned by calls on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrStoreUnavailable wraps unexpected credential store failures.
	ErrStoreUnavailable = errors.New("credential store unavailable")

	ErrTokenExpired      = tokens.ErrExpired
	ErrTokenMalformed    = tokens.ErrMalformed
	ErrTokenInvalid      = tokens.ErrInvalid
	ErrTokenTypeMismatch = tokens.ErrTypeMismatch
	ErrTokenRevoked      = tokens.ErrRevoked

	ErrPasswordPolicy      = password.ErrPolicy
	ErrPasswordCompromised = password.ErrCompromised
	ErrHashUnavailable     = password.ErrHashUnavailable
)

// PolicyError is the structured password rejection returned by Register and
// ChangePassword.
type PolicyError = password.PolicyError

// DuplicateError names the unique field that collided.
type DuplicateError struct {
	Field string // "email" or "username"
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already registered", e.Field)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateCredential }

// LockedError is returned while an account is locked out. Remaining is the
// time left at the moment the error was produced.
type LockedError struct {
	Until     time.Time
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked for %d more minute(s)", e.RemainingMinutes())
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// RemainingMinutes rounds up, so a lock with 10 seconds left reports 1.
func (e *LockedError) RemainingMinutes() int {
	if e.Remaining <= 0 {
		return 0
	}
	return int((e.Remaining + time.Minute - 1) / time.Minute)
}
