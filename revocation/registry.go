package revocation

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEmptyID is returned when revoking with an empty identifier.
	ErrEmptyID = errors.New("revocation id is empty")
	// ErrRedisUnavailable wraps transport failures from the Redis backend.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// DefaultSweepInterval is how often RunSweeper purges by default.
const DefaultSweepInterval = time.Hour

// Registry is the set of revoked token ids.
type Registry interface {
	// Revoke records id until expiresAt. It returns true only when this call
	// inserted the entry; an existing live entry or a past expiresAt yields false.
	Revoke(ctx context.Context, id string, expiresAt time.Time) (bool, error)
	// IsRevoked reports whether id has a live entry.
	IsRevoked(ctx context.Context, id string) (bool, error)
	// PurgeExpired removes entries whose expiry has passed and returns how many.
	PurgeExpired(ctx context.Context) (int, error)
}
