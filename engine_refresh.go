package forumauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/forumauth/tokens"
)

// Refresh rotates refreshToken into a new pair. The presented token is
// consumed: of any number of concurrent calls with the same token exactly
// one succeeds and the rest fail with ErrTokenRevoked. The subject must
// still exist and the token's generation must match the record.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is required", ErrTokenMalformed)
	}

	claims, err := e.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, e.refreshFailed(ctx, "", "", err)
	}

	record, err := e.store.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, e.refreshFailed(ctx, claims.Subject, claims.ID, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if claims.Generation != record.TokenVersion {
		return nil, e.refreshFailed(ctx, record.ID, claims.ID, fmt.Errorf("%w: stale generation", ErrTokenRevoked))
	}

	// The record's role wins so role changes apply from the next refresh.
	pair, err := e.tokens.Rotate(ctx, refreshToken, record.ID, record.Role, record.TokenVersion)
	if err != nil {
		return nil, e.refreshFailed(ctx, record.ID, claims.ID, err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, record.ID, claims.ID, nil, nil)
	return &pair, nil
}

func (e *Engine) refreshFailed(ctx context.Context, userID, tokenID string, err error) error {
	e.metricInc(MetricRefreshFailure)
	event := auditEventRefreshInvalid
	if errors.Is(err, ErrTokenRevoked) {
		e.metricInc(MetricRefreshReplayRejected)
		event = auditEventRefreshReplayRejected
	}
	e.emitAudit(ctx, event, false, userID, tokenID, err, nil)
	return err
}
