package forumauth

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "short access secret",
			mutate:  func(c *Config) { c.JWT.AccessSecret = []byte("short") },
			wantErr: "AccessSecret",
		},
		{
			name:    "short refresh secret",
			mutate:  func(c *Config) { c.JWT.RefreshSecret = []byte("short") },
			wantErr: "RefreshSecret",
		},
		{
			name:    "shared secret",
			mutate:  func(c *Config) { c.JWT.RefreshSecret = append([]byte(nil), c.JWT.AccessSecret...) },
			wantErr: "must differ",
		},
		{
			name:    "refresh not longer than access",
			mutate:  func(c *Config) { c.JWT.RefreshTTL = c.JWT.AccessTTL },
			wantErr: "RefreshTTL",
		},
		{
			name:    "negative leeway",
			mutate:  func(c *Config) { c.JWT.Leeway = -time.Second },
			wantErr: "Leeway",
		},
		{
			name:    "argon memory too low",
			mutate:  func(c *Config) { c.Password.Memory = 1024 },
			wantErr: "Memory",
		},
		{
			name:    "min length below floor",
			mutate:  func(c *Config) { c.Password.MinLength = 6 },
			wantErr: "MinLength",
		},
		{
			name:    "no hash workers",
			mutate:  func(c *Config) { c.Password.HashConcurrency = 0 },
			wantErr: "HashConcurrency",
		},
		{
			name:    "lockout threshold",
			mutate:  func(c *Config) { c.Lockout.Threshold = 0 },
			wantErr: "Threshold",
		},
		{
			name: "lockout disabled ignores threshold",
			mutate: func(c *Config) {
				c.Lockout.Enabled = false
				c.Lockout.Threshold = 0
			},
		},
		{
			name:    "empty cookie name",
			mutate:  func(c *Config) { c.Cookie.Name = "" },
			wantErr: "Cookie Name",
		},
		{
			name:    "cross site outside production",
			mutate:  func(c *Config) { c.Cookie.CrossSite = true },
			wantErr: "CrossSite",
		},
		{
			name: "cross site in production",
			mutate: func(c *Config) {
				c.Cookie.CrossSite = true
				c.Security.ProductionMode = true
			},
		},
		{
			name:    "empty default role",
			mutate:  func(c *Config) { c.Account.DefaultRole = "" },
			wantErr: "DefaultRole",
		},
		{
			name:    "audit buffer",
			mutate:  func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 },
			wantErr: "BufferSize",
		},
		{
			name:    "unknown validation mode",
			mutate:  func(c *Config) { c.ValidationMode = ValidationMode(9) },
			wantErr: "ValidationMode",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigNeedsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without secrets to be rejected")
	}
	if cfg.JWT.AccessTTL != 15*time.Minute || cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected default lifetimes %v/%v", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.Lockout.Threshold != 5 || cfg.Lockout.Duration != 15*time.Minute {
		t.Fatalf("unexpected default lockout %+v", cfg.Lockout)
	}
}

func TestBuildRejectsMissingStoreAndReuse(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected error without credential store")
	}

	b := New().WithConfig(testConfig()).WithCredentialStore(newMockStore())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestEngineConfigIsACopy(t *testing.T) {
	te := newTestEngine(t, testConfig())

	cfg := te.Config()
	cfg.JWT.AccessSecret[0] ^= 0xff
	if te.Config().JWT.AccessSecret[0] == cfg.JWT.AccessSecret[0] {
		t.Fatal("expected Config to return a deep copy of secrets")
	}
}
