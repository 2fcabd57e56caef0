package forumauth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/MrEthical07/forumauth/password"
	"github.com/MrEthical07/forumauth/revocation"
	"github.com/MrEthical07/forumauth/tokens"
)

// Config is the complete engine configuration. Obtain defaults from
// DefaultConfig, override fields, and pass it to Builder.WithConfig. It is
// copied at Build time and treated as immutable afterwards.
type Config struct {
	JWT            JWTConfig
	Password       PasswordConfig
	Lockout        LockoutConfig
	Revocation     RevocationConfig
	Cookie         CookieConfig
	Account        AccountConfig
	Audit          AuditConfig
	Metrics        MetricsConfig
	Security       SecurityConfig
	ValidationMode ValidationMode
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the two HS256 secrets and token lifetimes. The secrets
// must differ so an access token can never verify as a refresh token.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig tunes argon2id, the strength policy and the hashing pool.
type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int

	MinLength     int
	ExtraBreached []string

	UpgradeOnLogin  bool
	HashConcurrency int
	HashTimeout     time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls progressive lockout after consecutive failures.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig selects where revoked token ids live. With a Redis client
// on the builder the registries are shared across instances; otherwise they
// are process-local and swept every SweepInterval.
type RevocationConfig struct {
	RedisPrefix   string
	SweepInterval time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig names the transport cookies: <Name>_access and <Name>_refresh.
type CookieConfig struct {
	Name      string
	Domain    string
	Path      string
	CrossSite bool // SameSite=None; requires ProductionMode
}

// AccountConfig controls registration.
type AccountConfig struct {
	DefaultRole                string
	EnableRegistrationThrottle bool
	RegistrationMaxAttempts    int
	RegistrationCooldown       time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds deployment-wide hardening switches.
type SecurityConfig struct {
	// ProductionMode marks cookies Secure and enables SameSite=None for
	// cross-site deployments.
	ProductionMode bool
	// EqualizeLoginTiming runs a dummy verify for unknown emails.
	EqualizeLoginTiming bool
}

// ValidationMode decides how much ValidateAccess checks beyond the token.
type ValidationMode int

const (
	// ModeStrict also loads the credential record and rejects tokens of
	// deleted users or stale generations.
	ModeStrict ValidationMode = iota
	// ModeJWTOnly trusts signature, claims and the revocation registry.
	ModeJWTOnly
)

func (m ValidationMode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeJWTOnly:
		return "jwt_only"
	default:
		return "unknown"
	}
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns development defaults. JWT secrets are left empty and
// must be supplied.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			AccessTTL:  tokens.DefaultAccessTTL,
			RefreshTTL: tokens.DefaultRefreshTTL,
			Issuer:     "forumauth",
			Audience:   "forum",
		},
		Password: PasswordConfig{
			Memory:           pw.Memory,
			Time:             pw.Time,
			Parallelism:      pw.Parallelism,
			SaltLength:       pw.SaltLength,
			KeyLength:        pw.KeyLength,
			MaxPasswordBytes: pw.MaxPasswordBytes,
			MinLength:        password.DefaultMinLength,
			UpgradeOnLogin:   true,
			HashConcurrency:  4,
			HashTimeout:      5 * time.Second,
		},
		Lockout: LockoutConfig{
			Enabled:   true,
			Threshold: 5,
			Duration:  15 * time.Minute,
		},
		Revocation: RevocationConfig{
			RedisPrefix:   "rvk",
			SweepInterval: revocation.DefaultSweepInterval,
		},
		Cookie: CookieConfig{
			Name: "forum",
			Path: "/",
		},
		Account: AccountConfig{
			DefaultRole:                "user",
			EnableRegistrationThrottle: true,
			RegistrationMaxAttempts:    5,
			RegistrationCooldown:       15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode:      false,
			EqualizeLoginTiming: true,
		},
		ValidationMode: ModeStrict,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	if cfg.Password.ExtraBreached != nil {
		out.Password.ExtraBreached = append([]string(nil), cfg.Password.ExtraBreached...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Memory:           c.Password.Memory,
		Time:             c.Password.Time,
		Parallelism:      c.Password.Parallelism,
		SaltLength:       c.Password.SaltLength,
		KeyLength:        c.Password.KeyLength,
		MaxPasswordBytes: c.Password.MaxPasswordBytes,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting. Build calls it.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.AccessSecret) < 32 {
		return errors.New("JWT AccessSecret must be at least 32 bytes")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		return errors.New("JWT RefreshSecret must be at least 32 bytes")
	}
	if subtle.ConstantTimeCompare(c.JWT.AccessSecret, c.JWT.RefreshSecret) == 1 {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be > AccessTTL")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < password.DefaultMinLength {
		return errors.New("Password MinLength must be >= 8")
	}
	if c.Password.HashConcurrency <= 0 {
		return errors.New("Password HashConcurrency must be > 0")
	}
	if c.Password.HashTimeout <= 0 {
		return errors.New("Password HashTimeout must be > 0")
	}

	// Lockout
	if c.Lockout.Enabled {
		if c.Lockout.Threshold <= 0 {
			return errors.New("Lockout Threshold must be > 0")
		}
		if c.Lockout.Duration <= 0 {
			return errors.New("Lockout Duration must be > 0")
		}
	}

	// Revocation
	if c.Revocation.RedisPrefix == "" {
		return errors.New("Revocation RedisPrefix is required")
	}
	if c.Revocation.SweepInterval <= 0 {
		return errors.New("Revocation SweepInterval must be > 0")
	}

	// Cookie
	if c.Cookie.Name == "" {
		return errors.New("Cookie Name is required")
	}
	if c.Cookie.CrossSite && !c.Security.ProductionMode {
		return errors.New("Cookie CrossSite requires Security ProductionMode")
	}

	// Account
	if c.Account.DefaultRole == "" {
		return errors.New("Account DefaultRole is required")
	}
	if c.Account.EnableRegistrationThrottle {
		if c.Account.RegistrationMaxAttempts <= 0 {
			return errors.New("Account RegistrationMaxAttempts must be > 0")
		}
		if c.Account.RegistrationCooldown <= 0 {
			return errors.New("Account RegistrationCooldown must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.ValidationMode != ModeStrict && c.ValidationMode != ModeJWTOnly {
		return errors.New("ValidationMode is invalid")
	}

	return nil
}
