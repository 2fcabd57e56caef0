package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/forumauth"
	"github.com/MrEthical07/forumauth/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const seedPassword = "L0adTest!Passw0rd"

type userState struct {
	id      string
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		users       = flag.Int("users", 1000, "number of accounts to seed and log in")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (validate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		strict      = flag.Bool("strict", true, "validate against the credential store")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := forumauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(uuid.NewString() + uuid.NewString())
	cfg.JWT.RefreshSecret = []byte(uuid.NewString() + uuid.NewString())
	cfg.JWT.Issuer = "forumauth-loadtest"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.HashConcurrency = *concurrency
	cfg.Account.EnableRegistrationThrottle = false
	cfg.Revocation.RedisPrefix = "lt:" + uuid.NewString()[:8]
	if !*strict {
		cfg.ValidationMode = forumauth.ModeJWTOnly
	}

	store := memory.New()
	engine, err := forumauth.New().
		WithConfig(cfg).
		WithCredentialStore(store).
		WithRedis(client).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	states, err := seed(ctx, engine, store, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand, _ int) error {
		s := &states[r.Intn(len(states))]
		s.mu.Lock()
		token := s.access
		s.mu.Unlock()
		_, err := engine.ValidateAccess(ctx, token)
		return err
	})
	refreshStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand, _ int) error {
		s := &states[r.Intn(len(states))]
		s.mu.Lock()
		defer s.mu.Unlock()
		pair, err := engine.Refresh(ctx, s.refresh)
		if err != nil {
			return err
		}
		s.access, s.refresh = pair.AccessToken, pair.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)
	fmt.Printf("revocation: %+v\n", engine.RevocationStats())
}

// seed registers one account through the engine, clones its hash into the
// rest to skip per-user hashing, then logs every account in.
func seed(ctx context.Context, engine *forumauth.Engine, store *memory.Store, n int) ([]userState, error) {
	first, err := engine.Register(ctx, forumauth.RegisterRequest{
		Email:           "user-0@loadtest.local",
		Username:        "user-0",
		Password:        seedPassword,
		ConfirmPassword: seedPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := time.Now().UTC()
	for i := 1; i < n; i++ {
		rec := &forumauth.CredentialRecord{
			ID:                uuid.NewString(),
			Email:             fmt.Sprintf("user-%d@loadtest.local", i),
			Username:          fmt.Sprintf("user-%d", i),
			PasswordHash:      first.PasswordHash,
			Role:              first.Role,
			PasswordChangedAt: now,
			TokenVersion:      1,
			CreatedAt:         now,
		}
		if err := store.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("create %s: %w", rec.Email, err)
		}
	}

	states := make([]userState, n)
	for i := 0; i < n; i++ {
		res, err := engine.Login(ctx, fmt.Sprintf("user-%d@loadtest.local", i), seedPassword)
		if err != nil {
			return nil, fmt.Errorf("login user-%d: %w", i, err)
		}
		states[i] = userState{id: res.User.ID, access: res.Tokens.AccessToken, refresh: res.Tokens.RefreshToken}
	}
	return states, nil
}

func runPhase(ops, concurrency int, seedPrime int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seedPrime))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
