// Package config loads the forumauth service settings from the environment,
// after merging a local .env file when one exists.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/forumauth"
	"github.com/joho/godotenv"
)

// Config is the service configuration. Engine settings not listed here keep
// forumauth.DefaultConfig values.
type Config struct {
	AppEnv   string
	HTTPAddr string
	LogLevel string

	AccessSecret  string
	RefreshSecret string
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	CookieName      string
	CookieDomain    string
	CookieCrossSite bool

	DatabaseURL string
	SQLitePath  string

	RedisAddr     string
	RedisPassword string

	SentryDSN string

	LockoutThreshold int
	LockoutDuration  time.Duration
}

// Production reports APP_ENV=production.
func (c *Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load merges ENV_FILE_PATH (default ".env") into the environment without
// overriding variables that are already set, then reads the settings.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE_PATH")
	if envFile == "" {
		envFile = ".env"
	}
	// A missing file is normal when the environment is injected.
	_ = godotenv.Load(envFile)

	return FromEnv()
}

// FromEnv reads the settings without touching .env files.
func FromEnv() (*Config, error) {
	r := reader{}
	cfg := &Config{
		AppEnv:   r.str("APP_ENV", "development"),
		HTTPAddr: r.str("HTTP_ADDR", ":8080"),
		LogLevel: r.str("LOG_LEVEL", "info"),

		AccessSecret:  r.str("ACCESS_TOKEN_SECRET", ""),
		RefreshSecret: r.str("REFRESH_TOKEN_SECRET", ""),
		Issuer:        r.str("JWT_ISSUER", "forumauth"),
		Audience:      r.str("JWT_AUDIENCE", "forum"),
		AccessTTL:     r.duration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:    r.duration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		CookieName:      r.str("COOKIE_NAME", "forum"),
		CookieDomain:    r.str("COOKIE_DOMAIN", ""),
		CookieCrossSite: r.boolean("COOKIE_CROSS_SITE", false),

		DatabaseURL: r.str("DATABASE_URL", ""),
		SQLitePath:  r.str("SQLITE_PATH", "forumauth.db"),

		RedisAddr:     r.str("REDIS_ADDR", ""),
		RedisPassword: r.str("REDIS_PASSWORD", ""),

		SentryDSN: r.str("SENTRY_DSN", ""),

		LockoutThreshold: r.integer("LOCKOUT_THRESHOLD", 5),
		LockoutDuration:  r.duration("LOCKOUT_DURATION", 15*time.Minute),
	}
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required")
	}
	return cfg, nil
}

// Engine maps the service settings onto an engine configuration and
// validates it.
func (c *Config) Engine() (forumauth.Config, error) {
	ec := forumauth.DefaultConfig()
	ec.JWT.AccessSecret = []byte(c.AccessSecret)
	ec.JWT.RefreshSecret = []byte(c.RefreshSecret)
	ec.JWT.Issuer = c.Issuer
	ec.JWT.Audience = c.Audience
	ec.JWT.AccessTTL = c.AccessTTL
	ec.JWT.RefreshTTL = c.RefreshTTL

	ec.Cookie.Name = c.CookieName
	ec.Cookie.Domain = c.CookieDomain
	ec.Cookie.CrossSite = c.CookieCrossSite
	ec.Security.ProductionMode = c.Production()

	ec.Lockout.Threshold = c.LockoutThreshold
	ec.Lockout.Duration = c.LockoutDuration

	if err := ec.Validate(); err != nil {
		return forumauth.Config{}, fmt.Errorf("engine config: %w", err)
	}
	return ec, nil
}

type reader struct {
	errs []error
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}
