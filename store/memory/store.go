// Package memory is a process-local forumauth.CredentialStore for tests,
// demos and single-instance deployments. Records do not survive a restart.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/MrEthical07/forumauth"
)

// Store keeps records in maps guarded by one mutex. Update holds the write
// lock while fn runs, so fn must not call back into the store.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]*forumauth.CredentialRecord
	byEmail    map[string]string
	byUsername map[string]string
}

var _ forumauth.CredentialStore = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:       make(map[string]*forumauth.CredentialRecord),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}

// GetByID returns a copy of the record.
func (s *Store) GetByID(_ context.Context, id string) (*forumauth.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, forumauth.ErrUserNotFound
	}
	return clone(r), nil
}

// FindByEmail matches case-insensitively.
func (s *Store) FindByEmail(ctx context.Context, email string) (*forumauth.CredentialRecord, error) {
	return s.findBy(ctx, s.byEmail, emailKey(email))
}

// FindByUsername matches case-insensitively.
func (s *Store) FindByUsername(ctx context.Context, username string) (*forumauth.CredentialRecord, error) {
	return s.findBy(ctx, s.byUsername, usernameKey(username))
}

func (s *Store) findBy(_ context.Context, index map[string]string, key string) (*forumauth.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := index[key]
	if !ok {
		return nil, forumauth.ErrUserNotFound
	}
	return clone(s.byID[id]), nil
}

// Create rejects duplicate emails and usernames with *forumauth.DuplicateError.
func (s *Store) Create(_ context.Context, record *forumauth.CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[emailKey(record.Email)]; ok {
		return &forumauth.DuplicateError{Field: "email"}
	}
	if _, ok := s.byUsername[usernameKey(record.Username)]; ok {
		return &forumauth.DuplicateError{Field: "username"}
	}

	s.byID[record.ID] = clone(record)
	s.byEmail[emailKey(record.Email)] = record.ID
	s.byUsername[usernameKey(record.Username)] = record.ID
	return nil
}

// Update runs fn on a copy under the store lock and commits only when fn succeeds.
func (s *Store) Update(_ context.Context, id string, fn func(*forumauth.CredentialRecord) error) (*forumauth.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return nil, forumauth.ErrUserNotFound
	}

	working := clone(current)
	if err := fn(working); err != nil {
		return nil, err
	}
	// Identity columns are immutable here.
	working.ID = current.ID
	working.Email = current.Email
	working.Username = current.Username

	s.byID[id] = working
	return clone(working), nil
}

// Delete removes a record. Deleting a missing id is not an error.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byEmail, emailKey(r.Email))
	delete(s.byUsername, usernameKey(r.Username))
	delete(s.byID, id)
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func clone(r *forumauth.CredentialRecord) *forumauth.CredentialRecord {
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
