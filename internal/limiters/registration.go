package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRegistrationRateLimited = errors.New("registration rate limited")
	ErrRegistrationUnavailable = errors.New("registration limiter unavailable")
)

// RegistrationConfig allows MaxAttempts sign-ups per key per Cooldown window.
type RegistrationConfig struct {
	Enabled     bool
	MaxAttempts int
	Cooldown    time.Duration
}

// RegistrationLimiter is a fixed-window throttle on sign-ups per client IP
// and per email. A nil limiter allows everything.
type RegistrationLimiter struct {
	redis  redis.UniversalClient
	config RegistrationConfig
}

// NewRegistrationLimiter returns nil, which allows everything, when Redis is
// absent or the limiter is disabled.
func NewRegistrationLimiter(redisClient redis.UniversalClient, cfg RegistrationConfig) *RegistrationLimiter {
	if redisClient == nil || !cfg.Enabled {
		return nil
	}
	return &RegistrationLimiter{redis: redisClient, config: cfg}
}

// Enforce counts one attempt against both the email and the IP window.
// It returns ErrRegistrationRateLimited once either is exhausted.
func (l *RegistrationLimiter) Enforce(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	if email != "" {
		if err := l.enforceKey(ctx, "rgl:e:"+strings.ToLower(email)); err != nil {
			return err
		}
	}
	if ip != "" {
		if err := l.enforceKey(ctx, "rgl:ip:"+ip); err != nil {
			return err
		}
	}
	return nil
}

func (l *RegistrationLimiter) enforceKey(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistrationUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRegistrationUnavailable, err)
		}
	}

	if count > int64(l.config.MaxAttempts) {
		return ErrRegistrationRateLimited
	}
	return nil
}
