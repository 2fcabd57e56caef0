package forumauth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	internalaudit "github.com/MrEthical07/forumauth/internal/audit"
	"github.com/MrEthical07/forumauth/internal/limiters"
	"github.com/MrEthical07/forumauth/password"
	"github.com/MrEthical07/forumauth/revocation"
	"github.com/MrEthical07/forumauth/tokens"
	"github.com/jonboulle/clockwork"
)

// Engine orchestrates registration, login, refresh, logout and password
// change over a CredentialStore. Build one with New().WithConfig(...).Build().
// All methods are safe for concurrent use.
type Engine struct {
	config         Config
	store          CredentialStore
	passwordHash   *password.Pool
	policy         *password.Policy
	tokens         *tokens.Service
	accessRevoked  revocation.Registry
	refreshRevoked revocation.Registry
	lockout        *limiters.LockoutPolicy
	regLimiter     *limiters.RegistrationLimiter
	audit          *internalaudit.Dispatcher
	metrics        *Metrics
	logger         *slog.Logger
	clock          clockwork.Clock

	// dummyHash is verified against for unknown emails so both login
	// failure paths cost one KDF run.
	dummyHash string

	sweepCancel context.CancelFunc
	sweepers    sync.WaitGroup
	closeOnce   sync.Once
}

// Close stops the revocation sweepers and flushes the audit dispatcher. It
// does not close the CredentialStore or the Redis client.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.sweepCancel != nil {
			e.sweepCancel()
		}
		e.sweepers.Wait()
		for _, reg := range []revocation.Registry{e.accessRevoked, e.refreshRevoked} {
			if mem, ok := reg.(*revocation.Memory); ok {
				mem.Close()
			}
		}
		if e.audit != nil {
			e.audit.Close()
		}
	})
}

// AuditDropped reports audit events lost to backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of all counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// RevocationStats reports how many revoked ids each process-local registry
// holds.
func (e *Engine) RevocationStats() RevocationStats {
	if e == nil {
		return RevocationStats{}
	}
	return RevocationStats{
		Access:  registryLen(e.accessRevoked),
		Refresh: registryLen(e.refreshRevoked),
	}
}

func registryLen(reg revocation.Registry) int {
	if mem, ok := reg.(*revocation.Memory); ok {
		return mem.Len()
	}
	return -1
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// EvaluatePassword scores pw for strength meters. Breached passwords are
// reported as unacceptable with a compromised violation.
func (e *Engine) EvaluatePassword(pw string) password.Strength {
	if e == nil || e.policy == nil {
		return password.Strength{}
	}
	strength := e.policy.EvaluateStrength(pw)
	if e.policy.IsCompromised(pw) {
		strength.Acceptable = false
		strength.Score = 0
		strength.Label = "very_weak"
		strength.Violations = append(strength.Violations, password.ViolationCompromised)
	}
	return strength
}

// GenerateSecurePassword returns a random password that passes the policy.
// The policy requires a symbol, so includeSymbols=false is rejected with
// ErrValidation rather than producing a password Register would refuse.
func (e *Engine) GenerateSecurePassword(length int, includeSymbols bool) (string, error) {
	if !includeSymbols {
		return "", fmt.Errorf("%w: generated passwords must include symbols", ErrValidation)
	}
	return password.GenerateSecure(length, true)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// hashContext bounds one KDF run by the configured timeout.
func (e *Engine) hashContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Password.HashTimeout)
}

func (e *Engine) verifyPassword(ctx context.Context, pw, encoded string) (bool, error) {
	hctx, cancel := e.hashContext(ctx)
	defer cancel()

	start := e.clock.Now()
	ok, err := e.passwordHash.Verify(hctx, pw, encoded)
	e.metrics.Observe(MetricHashLatency, e.clock.Since(start))
	if err != nil {
		e.metricInc(MetricHashUnavailable)
	}
	return ok, err
}

func (e *Engine) hashPassword(ctx context.Context, pw string) (string, error) {
	hctx, cancel := e.hashContext(ctx)
	defer cancel()

	start := e.clock.Now()
	hash, err := e.passwordHash.Hash(hctx, pw)
	e.metrics.Observe(MetricHashLatency, e.clock.Since(start))
	if err != nil {
		e.metricInc(MetricHashUnavailable)
	}
	return hash, err
}
