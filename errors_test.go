package forumauth

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/forumauth/password"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{nil, ""},
		{&DuplicateError{Field: "email"}, CodeDuplicateEmail},
		{fmt.Errorf("wrapped: %w", &DuplicateError{Field: "username"}), CodeDuplicateUsername},
		{fmt.Errorf("%w: bad email", ErrValidation), CodeValidationFailed},
		{&password.PolicyError{Violations: []password.Violation{password.ViolationCompromised}, Compromised: true}, CodePasswordCompromised},
		{&password.PolicyError{Violations: []password.Violation{password.ViolationTooShort}}, CodePasswordPolicy},
		{ErrConfirmMismatch, CodeConfirmMismatch},
		{ErrInvalidCredentials, CodeInvalidCredentials},
		{&LockedError{Remaining: time.Minute}, CodeAccountLocked},
		{fmt.Errorf("%w: stale generation", ErrTokenRevoked), CodeTokenRevoked},
		{ErrTokenExpired, CodeTokenExpired},
		{ErrTokenMalformed, CodeTokenMalformed},
		{ErrTokenTypeMismatch, CodeTokenTypeMismatch},
		{ErrTokenInvalid, CodeTokenInvalid},
		{ErrUserNotFound, CodeUserNotFound},
		{ErrWrongCurrentPassword, CodeWrongCurrentPassword},
		{ErrPasswordReuse, CodePasswordReuse},
		{ErrRegistrationRateLimited, CodeRateLimited},
		{fmt.Errorf("%w: timeout", ErrHashUnavailable), CodeUnavailable},
		{fmt.Errorf("%w: %w", ErrStoreUnavailable, errors.New("conn reset")), CodeUnavailable},
		{errors.New("boom"), CodeInternal},
	}

	for _, tc := range tests {
		if got := Code(tc.err); got != tc.want {
			t.Fatalf("Code(%v): expected %q, got %q", tc.err, tc.want, got)
		}
	}
}

func TestLockedErrorRemainingMinutesRoundsUp(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		want      int
	}{
		{0, 0},
		{10 * time.Second, 1},
		{time.Minute, 1},
		{time.Minute + time.Second, 2},
		{15 * time.Minute, 15},
	}
	for _, tc := range tests {
		e := &LockedError{Remaining: tc.remaining}
		if got := e.RemainingMinutes(); got != tc.want {
			t.Fatalf("remaining %v: expected %d, got %d", tc.remaining, tc.want, got)
		}
	}
	if !errors.Is(&LockedError{}, ErrAccountLocked) {
		t.Fatal("LockedError must match ErrAccountLocked")
	}
}
