package forumauth

import (
	"context"
	"errors"
)

// Logout revokes both tokens until their natural expiry. It is idempotent:
// empty, malformed, expired and already revoked tokens are not errors. Only
// registry failures are returned.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}

	err := e.revokePair(ctx, accessToken, refreshToken)

	var userID, tokenID string
	if claims, decodeErr := e.tokens.InspectAccess(accessToken); decodeErr == nil {
		userID, tokenID = claims.Subject, claims.ID
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, err == nil, userID, tokenID, err, nil)
	return err
}

func (e *Engine) revokePair(ctx context.Context, accessToken, refreshToken string) error {
	return errors.Join(
		e.tokens.RevokeAccess(ctx, accessToken),
		e.tokens.RevokeRefresh(ctx, refreshToken),
	)
}
