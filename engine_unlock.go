package forumauth

import (
	"context"
	"errors"
	"fmt"
)

// UnlockAccount clears the failure counter and any active lock.
func (e *Engine) UnlockAccount(ctx context.Context, userID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}

	_, err := e.store.Update(ctx, userID, func(r *CredentialRecord) error {
		r.setLockoutState(e.lockout.Unlock(r.lockoutState()))
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricAccountUnlocked)
	e.emitAudit(ctx, auditEventAccountUnlocked, true, userID, "", nil, nil)
	return nil
}
