package forumauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// errCredentialChanged aborts a login update when the hash was replaced
// between verification and the write.
var errCredentialChanged = errors.New("credential changed during login")

// Login authenticates email and password and issues a token pair.
//
// Unknown email and wrong password both return ErrInvalidCredentials. A
// locked account returns *LockedError even for the correct password, and
// the failure that engages the lock returns *LockedError too. The lockout
// transition runs inside CredentialStore.Update, so concurrent failures for
// one account are counted exactly.
func (e *Engine) Login(ctx context.Context, email, pw string) (*LoginResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" || pw == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	record, err := e.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		e.equalizeTiming(ctx, pw)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if locked, remaining := e.lockout.Locked(record.lockoutState(), e.clock.Now()); locked {
		return nil, e.rejectLocked(ctx, record.ID, &LockedError{Until: *record.LockedUntil, Remaining: remaining})
	}

	ok, err := e.verifyPassword(ctx, pw, record.PasswordHash)
	if err != nil {
		// Transient: never counted as a wrong password.
		return nil, err
	}

	var (
		lockedErr *LockedError
		engaged   bool
		attempts  int
	)
	updated, err := e.store.Update(ctx, record.ID, func(r *CredentialRecord) error {
		now := e.clock.Now()
		if locked, remaining := e.lockout.Locked(r.lockoutState(), now); locked {
			lockedErr = &LockedError{Until: *r.LockedUntil, Remaining: remaining}
			return lockedErr
		}
		if r.PasswordHash != record.PasswordHash {
			return errCredentialChanged
		}

		if !ok {
			next, lockedNow := e.lockout.RecordFailure(r.lockoutState(), now)
			r.setLockoutState(next)
			attempts = next.Attempts
			if lockedNow {
				engaged = true
				lockedErr = &LockedError{Until: *next.LockedUntil, Remaining: next.LockedUntil.Sub(now)}
			}
			return nil
		}

		r.setLockoutState(e.lockout.RecordSuccess(r.lockoutState()))
		loginAt := now.UTC()
		r.LastLogin = &loginAt
		return nil
	})
	switch {
	case err == nil:
	case errors.As(err, &lockedErr):
		// Another request engaged the lock while this one was hashing.
		return nil, e.rejectLocked(ctx, record.ID, lockedErr)
	case errors.Is(err, errCredentialChanged):
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if !ok {
		e.metricInc(MetricLoginFailure)
		if engaged {
			e.metricInc(MetricAccountLocked)
			e.emitAudit(ctx, auditEventAccountLocked, false, record.ID, "", ErrAccountLocked, func() map[string]string {
				return map[string]string{"locked_until": lockedErr.Until.UTC().Format(time.RFC3339)}
			})
			return nil, lockedErr
		}
		e.emitAudit(ctx, auditEventLoginFailure, false, record.ID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"attempts": strconv.Itoa(attempts)}
		})
		return nil, ErrInvalidCredentials
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradeHash(ctx, updated, pw)
	}

	pair, err := e.tokens.IssuePair(ctx, updated.ID, updated.Role, updated.TokenVersion)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, updated.ID, "", nil, nil)

	return &LoginResult{User: updated.Public(), Tokens: pair}, nil
}

func (e *Engine) rejectLocked(ctx context.Context, userID string, lockedErr *LockedError) error {
	e.metricInc(MetricLoginLockedRejected)
	e.emitAudit(ctx, auditEventLoginLocked, false, userID, "", lockedErr, func() map[string]string {
		return map[string]string{"remaining_minutes": strconv.Itoa(lockedErr.RemainingMinutes())}
	})
	return lockedErr
}

func (e *Engine) equalizeTiming(ctx context.Context, pw string) {
	if !e.config.Security.EqualizeLoginTiming || e.dummyHash == "" {
		return
	}
	_, _ = e.verifyPassword(ctx, pw, e.dummyHash)
}

// upgradeHash rehashes with the current parameters after a successful
// login. Failures are logged and never fail the login.
func (e *Engine) upgradeHash(ctx context.Context, record *CredentialRecord, pw string) {
	needs, err := e.passwordHash.NeedsUpgrade(record.PasswordHash)
	if err != nil || !needs {
		return
	}

	newHash, err := e.hashPassword(ctx, pw)
	if err != nil {
		e.logger.WarnContext(ctx, "password hash upgrade failed", "user_id", record.ID, "error", err)
		return
	}

	oldHash := record.PasswordHash
	_, err = e.store.Update(ctx, record.ID, func(r *CredentialRecord) error {
		if r.PasswordHash != oldHash {
			return errCredentialChanged
		}
		r.PasswordHash = newHash
		return nil
	})
	if err != nil {
		e.logger.WarnContext(ctx, "password hash upgrade not saved", "user_id", record.ID, "error", err)
		return
	}

	record.PasswordHash = newHash
	e.metricInc(MetricPasswordHashUpgraded)
	e.emitAudit(ctx, auditEventPasswordHashUpgraded, true, record.ID, "", nil, nil)
}
