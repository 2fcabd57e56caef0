package forumauth

import (
	"context"
	"errors"
)

const (
	auditEventRegisterSuccess        = "register_success"
	auditEventRegisterFailure        = "register_failure"
	auditEventRegisterDuplicate      = "register_duplicate"
	auditEventRegisterRateLimited    = "register_rate_limited"
	auditEventLoginSuccess           = "login_success"
	auditEventLoginFailure           = "login_failure"
	auditEventLoginLocked            = "login_locked"
	auditEventAccountLocked          = "account_locked"
	auditEventAccountUnlocked        = "account_unlocked"
	auditEventRefreshSuccess         = "refresh_success"
	auditEventRefreshInvalid         = "refresh_invalid"
	auditEventRefreshReplayRejected  = "refresh_replay_rejected"
	auditEventLogout                 = "logout"
	auditEventPasswordChangeSuccess  = "password_change_success"
	auditEventPasswordChangeInvalid  = "password_change_invalid_old"
	auditEventPasswordChangeReuse    = "password_change_reuse_attempt"
	auditEventPasswordChangeFailure  = "password_change_failure"
	auditEventPasswordHashUpgraded   = "password_hash_upgraded"
	auditEventRevocationAfterChanged = "revocation_after_password_change_failed"
)

// ErrorCode is the stable machine-readable name of an engine error. It is
// written to audit events and to HTTP error bodies.
type ErrorCode string

const (
	CodeValidationFailed     ErrorCode = "validation_failed"
	CodeDuplicateEmail       ErrorCode = "duplicate_email"
	CodeDuplicateUsername    ErrorCode = "duplicate_username"
	CodePasswordPolicy       ErrorCode = "password_policy"
	CodePasswordCompromised  ErrorCode = "password_compromised"
	CodeConfirmMismatch      ErrorCode = "confirm_mismatch"
	CodeInvalidCredentials   ErrorCode = "invalid_credentials"
	CodeAccountLocked        ErrorCode = "account_locked"
	CodeTokenExpired         ErrorCode = "token_expired"
	CodeTokenRevoked         ErrorCode = "token_revoked"
	CodeTokenMalformed       ErrorCode = "token_malformed"
	CodeTokenInvalid         ErrorCode = "token_invalid"
	CodeTokenTypeMismatch    ErrorCode = "token_type_mismatch"
	CodeUserNotFound         ErrorCode = "user_not_found"
	CodeWrongCurrentPassword ErrorCode = "wrong_current_password"
	CodePasswordReuse        ErrorCode = "password_reuse"
	CodeRateLimited          ErrorCode = "rate_limited"
	CodeUnavailable          ErrorCode = "backend_unavailable"
	CodeInternal             ErrorCode = "internal_error"
)

// Code classifies err. It returns "" for nil. Order matters: typed and more
// specific sentinels are checked before the generic ones they wrap.
func Code(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var dup *DuplicateError
	switch {
	case errors.As(err, &dup):
		if dup.Field == "username" {
			return CodeDuplicateUsername
		}
		return CodeDuplicateEmail
	case errors.Is(err, ErrDuplicateCredential):
		return CodeDuplicateEmail
	case errors.Is(err, ErrValidation):
		return CodeValidationFailed
	case errors.Is(err, ErrPasswordCompromised):
		return CodePasswordCompromised
	case errors.Is(err, ErrPasswordPolicy):
		return CodePasswordPolicy
	case errors.Is(err, ErrConfirmMismatch):
		return CodeConfirmMismatch
	case errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return CodeAccountLocked
	case errors.Is(err, ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, ErrTokenRevoked):
		return CodeTokenRevoked
	case errors.Is(err, ErrTokenMalformed):
		return CodeTokenMalformed
	case errors.Is(err, ErrTokenTypeMismatch):
		return CodeTokenTypeMismatch
	case errors.Is(err, ErrTokenInvalid):
		return CodeTokenInvalid
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrWrongCurrentPassword):
		return CodeWrongCurrentPassword
	case errors.Is(err, ErrPasswordReuse):
		return CodePasswordReuse
	case errors.Is(err, ErrRegistrationRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrHashUnavailable),
		errors.Is(err, ErrStoreUnavailable):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	// Built lazily so disabled audit costs nothing on hot paths.
	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.clock.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		TokenID:   tokenID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := Code(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}
