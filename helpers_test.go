package forumauth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

var testEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	testEmail    = "alice@example.com"
	testUsername = "alice"
	testPassword = "Str0ng!Pass99"
)

// testConfig keeps argon2 at its minimum so tests stay fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-access-secret-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-refresh-secret-0123456789")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	return cfg
}

type mockStore struct {
	mu      sync.Mutex
	records map[string]*CredentialRecord
	failGet error
	updates int
}

func newMockStore() *mockStore {
	return &mockStore{records: map[string]*CredentialRecord{}}
}

func (s *mockStore) GetByID(_ context.Context, id string) (*CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	r, ok := s.records[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyRecord(r), nil
}

func (s *mockStore) FindByEmail(_ context.Context, email string) (*CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Email == email {
			return copyRecord(r), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *mockStore) FindByUsername(_ context.Context, username string) (*CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if strings.EqualFold(r.Username, username) {
			return copyRecord(r), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *mockStore) Create(_ context.Context, record *CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Email == record.Email {
			return &DuplicateError{Field: "email"}
		}
		if strings.EqualFold(r.Username, record.Username) {
			return &DuplicateError{Field: "username"}
		}
	}
	s.records[record.ID] = copyRecord(record)
	return nil
}

func (s *mockStore) Update(_ context.Context, id string, fn func(*CredentialRecord) error) (*CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	working := copyRecord(r)
	if err := fn(working); err != nil {
		return nil, err
	}
	s.records[id] = working
	s.updates++
	return copyRecord(working), nil
}

func (s *mockStore) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

func (s *mockStore) get(t *testing.T, id string) *CredentialRecord {
	t.Helper()
	r, err := s.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return r
}

func copyRecord(r *CredentialRecord) *CredentialRecord {
	out := *r
	if r.LockedUntil != nil {
		t := *r.LockedUntil
		out.LockedUntil = &t
	}
	if r.LastLogin != nil {
		t := *r.LastLogin
		out.LastLogin = &t
	}
	return &out
}

type testEngine struct {
	*Engine
	store *mockStore
	clock *clockwork.FakeClock
}

func newTestEngine(t *testing.T, cfg Config, configure ...func(*Builder)) testEngine {
	t.Helper()

	store := newMockStore()
	clock := clockwork.NewFakeClockAt(testEpoch)
	b := New().WithConfig(cfg).WithCredentialStore(store).WithClock(clock)
	for _, fn := range configure {
		fn(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return testEngine{Engine: engine, store: store, clock: clock}
}

// registerAlice creates the default test account and returns its id.
func (te testEngine) registerAlice(t *testing.T) string {
	t.Helper()
	rec, err := te.Register(context.Background(), RegisterRequest{
		Email:           testEmail,
		Username:        testUsername,
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return rec.ID
}

func (te testEngine) loginAlice(t *testing.T) *LoginResult {
	t.Helper()
	res, err := te.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return res
}

func mustErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
