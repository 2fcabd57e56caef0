package forumauth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrEthical07/forumauth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRegisterCreatesUserWithDefaultRole(t *testing.T) {
	te := newTestEngine(t, testConfig())

	rec, err := te.Register(context.Background(), RegisterRequest{
		Email:           "  Alice@Example.COM ",
		Username:        " alice ",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if rec.Role != "user" {
		t.Fatalf("expected role user, got %q", rec.Role)
	}
	if rec.Email != testEmail || rec.Username != testUsername {
		t.Fatalf("expected normalized identity, got %q/%q", rec.Email, rec.Username)
	}
	if rec.TokenVersion != 1 {
		t.Fatalf("expected token version 1, got %d", rec.TokenVersion)
	}
	if !strings.HasPrefix(rec.PasswordHash, "$argon2id$") {
		t.Fatalf("expected argon2id hash, got %q", rec.PasswordHash)
	}
	if rec.PasswordHash == testPassword {
		t.Fatal("password stored in plaintext")
	}

	stored := te.store.get(t, rec.ID)
	if stored.LoginAttempts != 0 || stored.LockedUntil != nil {
		t.Fatalf("expected clean lockout state, got %+v", stored)
	}
	if got := te.metrics.Value(MetricRegisterSuccess); got != 1 {
		t.Fatalf("expected register success metric 1, got %d", got)
	}
}

func TestRegisterRejectsCompromisedPassword(t *testing.T) {
	te := newTestEngine(t, testConfig())

	_, err := te.Register(context.Background(), RegisterRequest{
		Email:           testEmail,
		Username:        testUsername,
		Password:        "password",
		ConfirmPassword: "password",
	})
	mustErrorIs(t, err, ErrPasswordCompromised)
	mustErrorIs(t, err, ErrPasswordPolicy)
	if Code(err) != CodePasswordCompromised {
		t.Fatalf("expected %s, got %s", CodePasswordCompromised, Code(err))
	}
	if len(te.store.records) != 0 {
		t.Fatal("expected no record created")
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	te := newTestEngine(t, testConfig())

	_, err := te.Register(context.Background(), RegisterRequest{
		Email:           testEmail,
		Username:        testUsername,
		Password:        "lowercaseonly",
		ConfirmPassword: "lowercaseonly",
	})
	var pe *PolicyError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PolicyError, got %v", err)
	}
	if pe.Compromised {
		t.Fatal("did not expect compromised flag")
	}
	want := map[password.Violation]bool{
		password.ViolationMissingUppercase: true,
		password.ViolationMissingDigit:     true,
		password.ViolationMissingSymbol:    true,
	}
	for _, v := range pe.Violations {
		delete(want, v)
	}
	if len(want) != 0 {
		t.Fatalf("missing violations %v in %v", want, pe.Violations)
	}
	if Code(err) != CodePasswordPolicy {
		t.Fatalf("expected %s, got %s", CodePasswordPolicy, Code(err))
	}
}

func TestRegisterDuplicateEmailAndUsername(t *testing.T) {
	te := newTestEngine(t, testConfig())
	te.registerAlice(t)

	_, err := te.Register(context.Background(), RegisterRequest{
		Email:           "ALICE@example.com",
		Username:        "someone",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	var dup *DuplicateError
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if Code(err) != CodeDuplicateEmail {
		t.Fatalf("expected %s, got %s", CodeDuplicateEmail, Code(err))
	}

	_, err = te.Register(context.Background(), RegisterRequest{
		Email:           "other@example.com",
		Username:        "ALICE",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	if !errors.As(err, &dup) || dup.Field != "username" {
		t.Fatalf("expected duplicate username, got %v", err)
	}
	if Code(err) != CodeDuplicateUsername {
		t.Fatalf("expected %s, got %s", CodeDuplicateUsername, Code(err))
	}
}

func TestRegisterDuplicateCheckedBeforePolicy(t *testing.T) {
	te := newTestEngine(t, testConfig())
	te.registerAlice(t)

	_, err := te.Register(context.Background(), RegisterRequest{
		Email:           testEmail,
		Username:        "bob",
		Password:        "password",
		ConfirmPassword: "nope",
	})
	mustErrorIs(t, err, ErrDuplicateCredential)
}

func TestRegisterConfirmMismatch(t *testing.T) {
	te := newTestEngine(t, testConfig())

	_, err := te.Register(context.Background(), RegisterRequest{
		Email:           testEmail,
		Username:        testUsername,
		Password:        testPassword,
		ConfirmPassword: testPassword + "x",
	})
	mustErrorIs(t, err, ErrConfirmMismatch)
}

func TestRegisterValidation(t *testing.T) {
	te := newTestEngine(t, testConfig())

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"empty email", RegisterRequest{Username: "bob", Password: testPassword, ConfirmPassword: testPassword}},
		{"empty username", RegisterRequest{Email: "bob@example.com", Password: testPassword, ConfirmPassword: testPassword}},
		{"empty password", RegisterRequest{Email: "bob@example.com", Username: "bob"}},
		{"bad email", RegisterRequest{Email: "not-an-email", Username: "bob", Password: testPassword, ConfirmPassword: testPassword}},
		{"email without dot", RegisterRequest{Email: "bob@localhost", Username: "bob", Password: testPassword, ConfirmPassword: testPassword}},
		{"display name email", RegisterRequest{Email: "Bob <bob@example.com>", Username: "bob", Password: testPassword, ConfirmPassword: testPassword}},
		{"short username", RegisterRequest{Email: "bob@example.com", Username: "bo", Password: testPassword, ConfirmPassword: testPassword}},
		{"username with space", RegisterRequest{Email: "bob@example.com", Username: "bob smith", Password: testPassword, ConfirmPassword: testPassword}},
		{"oversized password", RegisterRequest{Email: "bob@example.com", Username: "bob", Password: strings.Repeat("Aa1!", 300), ConfirmPassword: strings.Repeat("Aa1!", 300)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := te.Register(context.Background(), tc.req)
			mustErrorIs(t, err, ErrValidation)
			if Code(err) != CodeValidationFailed {
				t.Fatalf("expected %s, got %s", CodeValidationFailed, Code(err))
			}
		})
	}
}

func TestRegisterThrottleWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	cfg.Account.RegistrationMaxAttempts = 2
	te := newTestEngine(t, cfg, func(b *Builder) { b.WithRedis(rdb) })

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	req := RegisterRequest{
		Email:           testEmail,
		Username:        testUsername,
		Password:        "short",
		ConfirmPassword: "short",
	}
	for i := 0; i < 2; i++ {
		_, err := te.Register(ctx, req)
		mustErrorIs(t, err, ErrPasswordPolicy)
	}

	_, err := te.Register(ctx, req)
	mustErrorIs(t, err, ErrRegistrationRateLimited)
	if Code(err) != CodeRateLimited {
		t.Fatalf("expected %s, got %s", CodeRateLimited, Code(err))
	}
	if got := te.metrics.Value(MetricRegisterRateLimited); got != 1 {
		t.Fatalf("expected rate limited metric 1, got %d", got)
	}
}

func TestEvaluatePasswordFlagsCompromised(t *testing.T) {
	te := newTestEngine(t, testConfig())

	s := te.EvaluatePassword("password")
	if s.Score != 0 {
		t.Fatalf("expected score 0 for compromised password, got %d", s.Score)
	}
	found := false
	for _, v := range s.Violations {
		if v == password.ViolationCompromised {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected compromised violation, got %v", s.Violations)
	}

	if strong := te.EvaluatePassword("c0rrect-Horse-battery!"); strong.Score < 3 {
		t.Fatalf("expected strong score, got %d", strong.Score)
	}
}

func TestGenerateSecurePasswordPassesRegistration(t *testing.T) {
	te := newTestEngine(t, testConfig())

	pw, err := te.GenerateSecurePassword(0, true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if s := te.EvaluatePassword(pw); !s.Acceptable {
		t.Fatalf("generated password %q rejected: %v", pw, s.Violations)
	}

	_, err = te.GenerateSecurePassword(16, false)
	mustErrorIs(t, err, ErrValidation)
}
