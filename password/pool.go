package password

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// ErrHashUnavailable is returned when a hash or verify could not finish in
// time. Callers must treat it as transient and never as a password mismatch.
var ErrHashUnavailable = errors.New("password hashing unavailable")

// Pool runs the KDF on worker goroutines so slow hashing never blocks the
// caller past its context. At most n computations run at once.
type Pool struct {
	hasher *Argon2
	sem    *semaphore.Weighted
}

// NewPool wraps hasher with a concurrency limit of n (minimum 1).
func NewPool(hasher *Argon2, n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{hasher: hasher, sem: semaphore.NewWeighted(int64(n))}
}

type hashResult struct {
	hash string
	err  error
}

// Hash computes a new hash for pw.
func (p *Pool) Hash(ctx context.Context, pw string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashUnavailable, err)
	}

	done := make(chan hashResult, 1)
	go func() {
		defer p.sem.Release(1)
		h, err := p.hasher.Hash(pw)
		done <- hashResult{hash: h, err: err}
	}()

	select {
	case res := <-done:
		return res.hash, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrHashUnavailable, ctx.Err())
	}
}

// Verify checks pw against encoded. A false result with a nil error is a
// genuine mismatch.
func (p *Pool) Verify(ctx context.Context, pw, encoded string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("%w: %w", ErrHashUnavailable, err)
	}

	done := make(chan bool, 1)
	go func() {
		defer p.sem.Release(1)
		done <- p.hasher.Verify(pw, encoded)
	}()

	select {
	case ok := <-done:
		return ok, nil
	case <-ctx.Done():
		return false, fmt.Errorf("%w: %w", ErrHashUnavailable, ctx.Err())
	}
}

// NeedsUpgrade is cheap and runs inline.
func (p *Pool) NeedsUpgrade(encoded string) (bool, error) {
	return p.hasher.NeedsUpgrade(encoded)
}
