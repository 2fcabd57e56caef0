package tokens

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/forumauth/jwt"
	"github.com/MrEthical07/forumauth/revocation"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{
	AccessSecret:  []byte("access-secret-access-secret-0123456789"),
	RefreshSecret: []byte("refresh-secret-refresh-secret-0123456789"),
	Issuer:        "forumauth",
	Audience:      "forum",
}

type fixture struct {
	svc     *Service
	clock   *clockwork.FakeClock
	access  *revocation.Memory
	refresh *revocation.Memory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	access := revocation.NewMemory(clock)
	refresh := revocation.NewMemory(clock)
	t.Cleanup(func() {
		access.Close()
		refresh.Close()
	})
	svc, err := NewService(testConfig, access, refresh, clock)
	require.NoError(t, err)
	return fixture{svc: svc, clock: clock, access: access, refresh: refresh}
}

func TestIssuePairRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.IssuePair(ctx, "user-42", "moderator", 1)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, pair.AccessExpiresIn)

	claims, err := f.svc.VerifyAccess(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, "moderator", claims.Role)
	assert.Equal(t, jwt.TypeAccess, claims.Type)
	assert.Equal(t, gjwt.ClaimStrings{"forum"}, claims.Audience)

	refreshClaims, err := f.svc.VerifyRefresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, refreshClaims.ExpiresAt.Sub(refreshClaims.IssuedAt.Time))
	assert.NotEqual(t, claims.ID, refreshClaims.ID)
}

func TestTokensNotInterchangeable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.IssuePair(ctx, "u", "user", 1)
	require.NoError(t, err)

	_, err = f.svc.VerifyRefresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = f.svc.VerifyAccess(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyAccessExpired(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.IssuePair(ctx, "u", "user", 1)
	require.NoError(t, err)

	f.clock.Advance(16 * time.Minute)
	_, err = f.svc.VerifyAccess(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = f.svc.VerifyRefresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRevokeAccessRejectedImmediately(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.IssuePair(ctx, "u", "user", 1)
	require.NoError(t, err)

	require.NoError(t, f.svc.RevokeAccess(ctx, pair.AccessToken))
	require.NoError(t, f.svc.RevokeRefresh(ctx, pair.RefreshToken))

	_, err = f.svc.VerifyAccess(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrRevoked)
	_, err = f.svc.VerifyRefresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRevoked)

	// Registries stay separate.
	assert.Equal(t, 1, f.access.Len())
	assert.Equal(t, 1, f.refresh.Len())
}

func TestRevokeIsIdempotentAndTolerant(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.IssuePair(ctx, "u", "user", 1)
	require.NoError(t, err)

	require.NoError(t, f.svc.RevokeAccess(ctx, pair.AccessToken))
	require.NoError(t, f.svc.RevokeAccess(ctx, pair.AccessToken))
	require.NoError(t, f.svc.RevokeAccess(ctx, ""))
	require.NoError(t, f.svc.RevokeAccess(ctx, "garbage"))
	assert.Equal(t, 1, f.access.Len())
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.IssuePair(ctx, "u", "user", 1)
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)
	require.NoError(t, f.svc.RevokeAccess(ctx, pair.AccessToken))
	assert.Zero(t, f.access.Len())
}

func TestRevokeIgnoresForgedSignature(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	forge := func(typ jwt.TokenType, id string) string {
		token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, jwt.Claims{
			Type: typ,
			RegisteredClaims: gjwt.RegisteredClaims{
				ID:        id,
				Subject:   "u",
				Issuer:    testConfig.Issuer,
				Audience:  gjwt.ClaimStrings{testConfig.Audience},
				ExpiresAt: gjwt.NewNumericDate(f.clock.Now().Add(time.Hour)),
			},
		}).SignedString([]byte("not-the-real-secret-not-the-real-secret"))
		require.NoError(t, err)
		return token
	}

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("forged-%d", i)
		require.NoError(t, f.svc.RevokeAccess(ctx, forge(jwt.TypeAccess, id)))
		require.NoError(t, f.svc.RevokeRefresh(ctx, forge(jwt.TypeRefresh, id)))
	}
	assert.Zero(t, f.access.Len())
	assert.Zero(t, f.refresh.Len())

	// A genuine refresh token presented as an access token is ignored too.
	pair, err := f.svc.IssuePair(ctx, "u", "user", 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.RevokeAccess(ctx, pair.RefreshToken))
	assert.Zero(t, f.access.Len())
}

func TestRevokeKeepsEntryUntilTokenExpiry(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.IssuePair(ctx, "u", "user", 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.RevokeAccess(ctx, pair.AccessToken))

	f.clock.Advance(14 * time.Minute)
	_, err = f.svc.VerifyAccess(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrRevoked)

	f.clock.Advance(time.Minute)
	_, err = f.svc.VerifyAccess(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpired)
	purged, err := f.access.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, purged, 1)
	assert.Zero(t, f.access.Len())
}

func TestRotateIsSingleUse(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.IssuePair(ctx, "u", "user", 1)
	require.NoError(t, err)

	next, err := f.svc.Rotate(ctx, pair.RefreshToken, "u", "user", 1)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = f.svc.Rotate(ctx, pair.RefreshToken, "u", "user", 1)
	assert.ErrorIs(t, err, ErrRevoked)

	_, err = f.svc.VerifyRefresh(ctx, next.RefreshToken)
	assert.NoError(t, err)
}

func TestRotateConcurrentSingleWinner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.IssuePair(ctx, "u", "user", 1)
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Rotate(ctx, pair.RefreshToken, "u", "user", 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrRevoked)
	}
	assert.Equal(t, 1, wins)
}

func TestRotateRejectsExpiredAndForeign(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.IssuePair(ctx, "u", "user", 1)
	require.NoError(t, err)

	_, err = f.svc.Rotate(ctx, pair.RefreshToken, "someone-else", "user", 1)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Zero(t, f.refresh.Len(), "failed rotation must not consume the token")

	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err = f.svc.Rotate(ctx, pair.RefreshToken, "u", "user", 1)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestNewServiceValidation(t *testing.T) {
	t.Parallel()
	reg := revocation.NewMemory(nil)
	defer reg.Close()

	same := testConfig
	same.RefreshSecret = same.AccessSecret
	_, err := NewService(same, reg, revocation.NewMemory(nil), nil)
	assert.Error(t, err)

	_, err = NewService(testConfig, nil, reg, nil)
	assert.Error(t, err)

	inverted := testConfig
	inverted.AccessTTL = time.Hour
	inverted.RefreshTTL = time.Minute
	_, err = NewService(inverted, reg, revocation.NewMemory(nil), nil)
	assert.Error(t, err)
}
