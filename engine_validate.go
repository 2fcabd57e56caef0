package forumauth

import (
	"context"
	"errors"
	"fmt"
)

// ValidateAccess verifies an access token. ModeJWTOnly trusts the token and
// the revocation registry; ModeStrict additionally requires the subject to
// exist with a matching token generation, and reports the record's current
// role rather than the one embedded at issue time.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	return e.ValidateAccessWithMode(ctx, accessToken, e.config.ValidationMode)
}

// ValidateAccessWithMode overrides the configured mode for one call, for
// routes that need a stricter or cheaper check than the default.
func (e *Engine) ValidateAccessWithMode(ctx context.Context, accessToken string, mode ValidationMode) (*AuthResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if mode != ModeStrict && mode != ModeJWTOnly {
		return nil, fmt.Errorf("%w: unknown validation mode %d", ErrValidation, mode)
	}

	start := e.clock.Now()
	result, err := e.validateAccess(ctx, accessToken, mode)
	e.metrics.Observe(MetricValidateLatency, e.clock.Since(start))
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, err
	}
	e.metricInc(MetricValidateSuccess)
	return result, nil
}

func (e *Engine) validateAccess(ctx context.Context, accessToken string, mode ValidationMode) (*AuthResult, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: access token is required", ErrTokenMalformed)
	}

	claims, err := e.tokens.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	result := &AuthResult{
		UserID:    claims.Subject,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		Mode:      mode,
	}
	if mode == ModeJWTOnly {
		return result, nil
	}

	record, err := e.store.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: subject no longer exists", ErrTokenInvalid)
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if claims.Generation != record.TokenVersion {
		return nil, fmt.Errorf("%w: stale generation", ErrTokenRevoked)
	}
	result.Role = record.Role
	return result, nil
}
