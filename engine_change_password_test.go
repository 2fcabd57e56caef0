package forumauth

import (
	"context"
	"testing"
)

const newTestPassword = "N3w!Passphrase42"

func TestChangePasswordSuccessInvalidatesEverySession(t *testing.T) {
	te := newTestEngine(t, testConfig())
	id := te.registerAlice(t)
	ctx := context.Background()

	current := te.loginAlice(t)
	other := te.loginAlice(t)

	err := te.ChangePassword(ctx, ChangePasswordRequest{
		UserID:          id,
		CurrentPassword: testPassword,
		NewPassword:     newTestPassword,
		AccessToken:     current.Tokens.AccessToken,
		RefreshToken:    current.Tokens.RefreshToken,
	})
	if err != nil {
		t.Fatalf("change password: %v", err)
	}

	stored := te.store.get(t, id)
	if stored.TokenVersion != 2 {
		t.Fatalf("expected token version 2, got %d", stored.TokenVersion)
	}
	if !stored.PasswordChangedAt.Equal(testEpoch) {
		t.Fatalf("expected password changed at %v, got %v", testEpoch, stored.PasswordChangedAt)
	}

	_, err = te.ValidateAccess(ctx, current.Tokens.AccessToken)
	mustErrorIs(t, err, ErrTokenRevoked)
	_, err = te.ValidateAccess(ctx, other.Tokens.AccessToken)
	mustErrorIs(t, err, ErrTokenRevoked)
	_, err = te.Refresh(ctx, other.Tokens.RefreshToken)
	mustErrorIs(t, err, ErrTokenRevoked)

	_, err = te.Login(ctx, testEmail, testPassword)
	mustErrorIs(t, err, ErrInvalidCredentials)

	fresh, err := te.Login(ctx, testEmail, newTestPassword)
	if err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := te.ValidateAccess(ctx, fresh.Tokens.AccessToken); err != nil {
		t.Fatalf("fresh token should validate: %v", err)
	}
}

func TestChangePasswordRevokesPresentedTokensInJWTOnlyMode(t *testing.T) {
	cfg := testConfig()
	cfg.ValidationMode = ModeJWTOnly
	te := newTestEngine(t, cfg)
	id := te.registerAlice(t)
	login := te.loginAlice(t)

	err := te.ChangePassword(context.Background(), ChangePasswordRequest{
		UserID:          id,
		CurrentPassword: testPassword,
		NewPassword:     newTestPassword,
		AccessToken:     login.Tokens.AccessToken,
		RefreshToken:    login.Tokens.RefreshToken,
	})
	if err != nil {
		t.Fatalf("change password: %v", err)
	}

	_, err = te.ValidateAccess(context.Background(), login.Tokens.AccessToken)
	mustErrorIs(t, err, ErrTokenRevoked)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	te := newTestEngine(t, testConfig())
	id := te.registerAlice(t)

	err := te.ChangePassword(context.Background(), ChangePasswordRequest{
		UserID:          id,
		CurrentPassword: "Wr0ng!Password",
		NewPassword:     newTestPassword,
	})
	mustErrorIs(t, err, ErrWrongCurrentPassword)
	if Code(err) != CodeWrongCurrentPassword {
		t.Fatalf("expected %s, got %s", CodeWrongCurrentPassword, Code(err))
	}
	if te.store.get(t, id).TokenVersion != 1 {
		t.Fatal("token version must not change on failure")
	}
	if got := te.metrics.Value(MetricPasswordChangeInvalidOld); got != 1 {
		t.Fatalf("expected invalid-old metric 1, got %d", got)
	}
}

func TestChangePasswordRejectsReuse(t *testing.T) {
	te := newTestEngine(t, testConfig())
	id := te.registerAlice(t)

	err := te.ChangePassword(context.Background(), ChangePasswordRequest{
		UserID:          id,
		CurrentPassword: testPassword,
		NewPassword:     testPassword,
	})
	mustErrorIs(t, err, ErrPasswordReuse)
	if got := te.metrics.Value(MetricPasswordChangeReuseRejected); got != 1 {
		t.Fatalf("expected reuse metric 1, got %d", got)
	}
}

func TestChangePasswordAppliesPolicy(t *testing.T) {
	te := newTestEngine(t, testConfig())
	id := te.registerAlice(t)

	err := te.ChangePassword(context.Background(), ChangePasswordRequest{
		UserID:          id,
		CurrentPassword: testPassword,
		NewPassword:     "P@ssw0rd123",
	})
	mustErrorIs(t, err, ErrPasswordCompromised)

	err = te.ChangePassword(context.Background(), ChangePasswordRequest{
		UserID:          id,
		CurrentPassword: testPassword,
		NewPassword:     "short",
	})
	mustErrorIs(t, err, ErrPasswordPolicy)
}

func TestChangePasswordValidationAndMissingUser(t *testing.T) {
	te := newTestEngine(t, testConfig())

	err := te.ChangePassword(context.Background(), ChangePasswordRequest{UserID: "x"})
	mustErrorIs(t, err, ErrValidation)

	err = te.ChangePassword(context.Background(), ChangePasswordRequest{
		UserID:          "missing",
		CurrentPassword: testPassword,
		NewPassword:     newTestPassword,
	})
	mustErrorIs(t, err, ErrUserNotFound)
}
