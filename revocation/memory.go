package revocation

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type entry struct {
	expiresAt time.Time
	timer     clockwork.Timer
}

// Memory is an in-process Registry. Each entry owns one eviction timer; a
// sweep that removes an entry early stops its timer, and a timer that fires
// after its entry was replaced or swept leaves the map untouched.
type Memory struct {
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
}

// NewMemory returns an empty registry driven by clock. A nil clock means the
// wall clock.
func NewMemory(clock clockwork.Clock) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{
		clock:   clock,
		entries: make(map[string]*entry),
	}
}

// Revoke inserts id if no live entry exists and arms its eviction timer.
func (m *Memory) Revoke(_ context.Context, id string, expiresAt time.Time) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}

	now := m.clock.Now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.entries[id]; ok {
		if now.Before(cur.expiresAt) {
			return false, nil
		}
		cur.timer.Stop()
	}

	e := &entry{expiresAt: expiresAt}
	// The callback cannot run before the assignment below: it needs m.mu.
	e.timer = m.clock.AfterFunc(ttl, func() { m.evict(id, e) })
	m.entries[id] = e
	return true, nil
}

// IsRevoked reports a live entry; one past its expiry counts as absent.
func (m *Memory) IsRevoked(_ context.Context, id string) (bool, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	return ok && now.Before(e.expiresAt), nil
}

// PurgeExpired drops entries whose expiry has passed.
func (m *Memory) PurgeExpired(_ context.Context) (int, error) {
	return m.purgeBefore(m.clock.Now()), nil
}

func (m *Memory) purgeBefore(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for id, e := range m.entries {
		if now.Before(e.expiresAt) {
			continue
		}
		e.timer.Stop()
		delete(m.entries, id)
		purged++
	}
	return purged
}

// evict runs on the entry's timer. It must not call m.clock: a fake clock
// may still hold its own lock while the callback starts.
func (m *Memory) evict(id string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.entries[id]; ok && cur == e {
		delete(m.entries, id)
	}
}

// Len returns the number of entries currently held, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RunSweeper calls PurgeExpired every interval until ctx is done.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			_, _ = m.PurgeExpired(ctx)
		}
	}
}

// Close stops every pending timer and drops all entries.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.entries {
		e.timer.Stop()
		delete(m.entries, id)
	}
}
