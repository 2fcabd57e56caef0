package forumauth

import (
	"context"
	"errors"
	"fmt"
)

// ChangePassword replaces the user's password after verifying the current
// one. On success it bumps TokenVersion, which invalidates every token the
// user holds under strict validation and refresh, and revokes the tokens in
// req outright so they also fail JWT-only validation.
func (e *Engine) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if req.UserID == "" || req.CurrentPassword == "" || req.NewPassword == "" {
		return fmt.Errorf("%w: user id, current and new password are required", ErrValidation)
	}
	if len(req.NewPassword) > e.config.Password.MaxPasswordBytes {
		return fmt.Errorf("%w: password is too long", ErrValidation)
	}

	record, err := e.store.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return e.passwordChangeFailed(ctx, req.UserID, auditEventPasswordChangeFailure, ErrUserNotFound)
		}
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	ok, err := e.verifyPassword(ctx, req.CurrentPassword, record.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		return e.passwordChangeFailed(ctx, record.ID, auditEventPasswordChangeInvalid, ErrWrongCurrentPassword)
	}

	if req.NewPassword == req.CurrentPassword {
		e.metricInc(MetricPasswordChangeReuseRejected)
		return e.passwordChangeFailed(ctx, record.ID, auditEventPasswordChangeReuse, ErrPasswordReuse)
	}
	if err := e.policy.Check(req.NewPassword); err != nil {
		return e.passwordChangeFailed(ctx, record.ID, auditEventPasswordChangeFailure, err)
	}

	newHash, err := e.hashPassword(ctx, req.NewPassword)
	if err != nil {
		return err
	}

	oldHash := record.PasswordHash
	updated, err := e.store.Update(ctx, record.ID, func(r *CredentialRecord) error {
		// A concurrent change already replaced the hash we verified against.
		if r.PasswordHash != oldHash {
			return ErrWrongCurrentPassword
		}
		r.PasswordHash = newHash
		r.PasswordChangedAt = e.clock.Now().UTC()
		r.TokenVersion++
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrWrongCurrentPassword), errors.Is(err, ErrUserNotFound):
		return e.passwordChangeFailed(ctx, record.ID, auditEventPasswordChangeFailure, err)
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	// The generation bump already invalidated these; revocation also covers
	// JWT-only validation. Failure here does not undo the change.
	if revokeErr := e.revokePair(ctx, req.AccessToken, req.RefreshToken); revokeErr != nil {
		e.logger.WarnContext(ctx, "token revocation after password change failed", "user_id", updated.ID, "error", revokeErr)
		e.emitAudit(ctx, auditEventRevocationAfterChanged, false, updated.ID, "", revokeErr, nil)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, updated.ID, "", nil, nil)
	return nil
}

func (e *Engine) passwordChangeFailed(ctx context.Context, userID, event string, err error) error {
	e.emitAudit(ctx, event, false, userID, "", err, nil)
	return err
}
