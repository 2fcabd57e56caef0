package forumauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	internalaudit "github.com/MrEthical07/forumauth/internal/audit"
	"github.com/MrEthical07/forumauth/internal/limiters"
	"github.com/MrEthical07/forumauth/password"
	"github.com/MrEthical07/forumauth/revocation"
	"github.com/MrEthical07/forumauth/tokens"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder is single-use.
type Builder struct {
	config Config
	store  CredentialStore
	redis  redis.UniversalClient

	auditSink AuditSink
	logger    *slog.Logger
	clock     clockwork.Clock

	built bool
}

// New starts a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentialStore is required.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithRedis switches both revocation registries to Redis and enables the
// registration throttle. Without it the registries are process-local.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock injects time, mainly for tests.
func (b *Builder) WithClock(clock clockwork.Clock) *Builder {
	b.clock = clock
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component. When no
// Redis client was given it starts one sweeper goroutine per registry;
// Engine.Close stops them.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}

	clock := b.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- PASSWORDS --------
	argon, err := password.NewArgon2(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}
	dummyHash, err := argon.Hash(randomFiller())
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	// -------- REVOCATION --------
	var accessRevoked, refreshRevoked revocation.Registry
	var sweeping []*revocation.Memory
	if b.redis != nil {
		accessRevoked = revocation.NewRedis(b.redis, cfg.Revocation.RedisPrefix+":a", clock)
		refreshRevoked = revocation.NewRedis(b.redis, cfg.Revocation.RedisPrefix+":r", clock)
	} else {
		access := revocation.NewMemory(clock)
		refresh := revocation.NewMemory(clock)
		accessRevoked, refreshRevoked = access, refresh
		sweeping = append(sweeping, access, refresh)
	}

	// -------- TOKENS --------
	tokenService, err := tokens.NewService(tokens.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	}, accessRevoked, refreshRevoked, clock)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:         cfg,
		store:          b.store,
		passwordHash:   password.NewPool(argon, cfg.Password.HashConcurrency),
		policy:         password.NewPolicy(password.PolicyConfig{MinLength: cfg.Password.MinLength, ExtraBreached: cfg.Password.ExtraBreached}),
		tokens:         tokenService,
		accessRevoked:  accessRevoked,
		refreshRevoked: refreshRevoked,
		lockout: limiters.NewLockoutPolicy(limiters.LockoutConfig{
			Enabled:   cfg.Lockout.Enabled,
			Threshold: cfg.Lockout.Threshold,
			Duration:  cfg.Lockout.Duration,
		}),
		regLimiter: limiters.NewRegistrationLimiter(b.redis, limiters.RegistrationConfig{
			Enabled:     cfg.Account.EnableRegistrationThrottle,
			MaxAttempts: cfg.Account.RegistrationMaxAttempts,
			Cooldown:    cfg.Account.RegistrationCooldown,
		}),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
		logger:    logger,
		clock:     clock,
		dummyHash: dummyHash,
	}

	if len(sweeping) > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		engine.sweepCancel = cancel
		for _, mem := range sweeping {
			engine.sweepers.Add(1)
			go func(mem *revocation.Memory) {
				defer engine.sweepers.Done()
				mem.RunSweeper(ctx, cfg.Revocation.SweepInterval)
			}(mem)
		}
	}

	b.built = true

	return engine, nil
}

func randomFiller() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
