package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Redis is a Registry shared between service instances. Each entry is a key
// holding a native TTL, so eviction needs no timers and no sweeps.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
	clock  clockwork.Clock
}

// NewRedis returns a Redis-backed registry. prefix namespaces the keys and
// must differ between the access and refresh registries.
func NewRedis(rdb redis.UniversalClient, prefix string, clock clockwork.Clock) *Redis {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Redis{redis: rdb, prefix: prefix, clock: clock}
}

func (r *Redis) key(id string) string {
	return r.prefix + ":" + id
}

// Revoke issues SET NX with the remaining lifetime as TTL.
//
//	Performance: 1 Redis command.
func (r *Redis) Revoke(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}
	ttl := expiresAt.Sub(r.clock.Now())
	if ttl <= 0 {
		return false, nil
	}

	inserted, err := r.redis.SetNX(ctx, r.key(id), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return inserted, nil
}

// IsRevoked checks key existence.
//
//	Performance: 1 Redis EXISTS.
func (r *Redis) IsRevoked(ctx context.Context, id string) (bool, error) {
	n, err := r.redis.Exists(ctx, r.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// PurgeExpired is a no-op: Redis expires keys itself.
func (r *Redis) PurgeExpired(context.Context) (int, error) {
	return 0, nil
}

// Ping reports round-trip latency to the backing server.
func (r *Redis) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
