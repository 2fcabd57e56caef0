package forumauth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/MrEthical07/forumauth/internal/limiters"
	"github.com/google/uuid"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// Register creates a credential record with the default role. Checks run in
// a fixed order: input shape, email then username uniqueness, confirmation,
// then strength and breach policy. It never logs the user in.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*CredentialRecord, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)
	if err := e.validateRegistration(email, username, req); err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		return nil, err
	}

	if err := e.regLimiter.Enforce(ctx, email, clientIPFromContext(ctx)); err != nil {
		if errors.Is(err, limiters.ErrRegistrationRateLimited) {
			e.metricInc(MetricRegisterRateLimited)
			e.emitAudit(ctx, auditEventRegisterRateLimited, false, "", "", ErrRegistrationRateLimited, nil)
			return nil, ErrRegistrationRateLimited
		}
		return nil, fmt.Errorf("registration throttle: %w", err)
	}

	if err := e.ensureUnique(ctx, email, username); err != nil {
		if errors.Is(err, ErrDuplicateCredential) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", err, nil)
		}
		return nil, err
	}

	if req.Password != req.ConfirmPassword {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrConfirmMismatch, nil)
		return nil, ErrConfirmMismatch
	}

	if err := e.policy.Check(req.Password); err != nil {
		e.metricInc(MetricRegisterPolicyRejected)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		return nil, err
	}

	hash, err := e.hashPassword(ctx, req.Password)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now().UTC()
	record := &CredentialRecord{
		ID:                uuid.NewString(),
		Email:             email,
		Username:          username,
		PasswordHash:      hash,
		Role:              e.config.Account.DefaultRole,
		PasswordChangedAt: now,
		TokenVersion:      1,
		CreatedAt:         now,
	}

	// A concurrent registration can still win between the lookups above
	// and this insert; the store reports it as a duplicate.
	if err := e.store.Create(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateCredential) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", err, nil)
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, record.ID, "", nil, func() map[string]string {
		return map[string]string{"role": record.Role}
	})

	out := *record
	return &out, nil
}

func (e *Engine) validateRegistration(email, username string, req RegisterRequest) error {
	switch {
	case email == "":
		return fmt.Errorf("%w: email is required", ErrValidation)
	case !validEmail(email):
		return fmt.Errorf("%w: email is malformed", ErrValidation)
	case username == "":
		return fmt.Errorf("%w: username is required", ErrValidation)
	case !usernamePattern.MatchString(username):
		return fmt.Errorf("%w: username must be 3-32 letters, digits, '.', '_' or '-'", ErrValidation)
	case req.Password == "":
		return fmt.Errorf("%w: password is required", ErrValidation)
	case req.ConfirmPassword == "":
		return fmt.Errorf("%w: password confirmation is required", ErrValidation)
	case len(req.Password) > e.config.Password.MaxPasswordBytes:
		return fmt.Errorf("%w: password is too long", ErrValidation)
	}
	return nil
}

func (e *Engine) ensureUnique(ctx context.Context, email, username string) error {
	if _, err := e.store.FindByEmail(ctx, email); err == nil {
		return &DuplicateError{Field: "email"}
	} else if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if _, err := e.store.FindByUsername(ctx, username); err == nil {
		return &DuplicateError{Field: "username"}
	} else if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail accepts a bare addr-spec only: no display name, no angle
// brackets.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email[strings.LastIndexByte(email, '@')+1:], ".")
}
