package tokens

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/forumauth/jwt"
	"github.com/MrEthical07/forumauth/revocation"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrExpired      = jwt.ErrExpired
	ErrMalformed    = jwt.ErrMalformed
	ErrInvalid      = jwt.ErrInvalid
	ErrTypeMismatch = jwt.ErrTypeMismatch
	// ErrRevoked is returned for tokens present in the revocation registry,
	// including a refresh token that lost a rotation race.
	ErrRevoked = errors.New("token revoked")
)

// Config holds key material and lifetimes for both token types.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// Pair is what a client receives after login or refresh.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  time.Duration
	AccessExpiresAt  time.Time
	RefreshExpiresIn time.Duration
	RefreshExpiresAt time.Time
}

// Service issues, verifies, rotates and revokes token pairs. It holds no
// per-token state besides what the registries keep.
type Service struct {
	access         *jwt.Manager
	refresh        *jwt.Manager
	accessRevoked  revocation.Registry
	refreshRevoked revocation.Registry
}

// NewService validates cfg. accessRevoked and refreshRevoked must be distinct
// registries (or distinct key prefixes of a shared one).
func NewService(cfg Config, accessRevoked, refreshRevoked revocation.Registry, clock clockwork.Clock) (*Service, error) {
	if accessRevoked == nil || refreshRevoked == nil {
		return nil, errors.New("tokens: revocation registries are required")
	}
	if subtle.ConstantTimeCompare(cfg.AccessSecret, cfg.RefreshSecret) == 1 {
		return nil, errors.New("tokens: access and refresh secrets must differ")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("tokens: refresh TTL must exceed access TTL")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	access, err := jwt.NewManager(jwt.Config{
		Type:       jwt.TypeAccess,
		TTL:        cfg.AccessTTL,
		PrivateKey: cfg.AccessSecret,
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		Leeway:     cfg.Leeway,
		Now:        clock.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("tokens: access: %w", err)
	}
	refresh, err := jwt.NewManager(jwt.Config{
		Type:       jwt.TypeRefresh,
		TTL:        cfg.RefreshTTL,
		PrivateKey: cfg.RefreshSecret,
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		Leeway:     cfg.Leeway,
		Now:        clock.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("tokens: refresh: %w", err)
	}

	return &Service{
		access:         access,
		refresh:        refresh,
		accessRevoked:  accessRevoked,
		refreshRevoked: refreshRevoked,
	}, nil
}

// IssuePair mints a fresh access and refresh token for subjectID.
// generation is the subject's current token version.
func (s *Service) IssuePair(_ context.Context, subjectID, role string, generation uint32) (Pair, error) {
	accessToken, accessClaims, err := s.access.Issue(subjectID, role, generation)
	if err != nil {
		return Pair{}, err
	}
	refreshToken, refreshClaims, err := s.refresh.Issue(subjectID, role, generation)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresIn:  s.access.TTL(),
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshExpiresIn: s.refresh.TTL(),
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

// VerifyAccess checks signature and expiry, issuer and audience, the typ
// claim, and finally the access revocation registry, in that order.
func (s *Service) VerifyAccess(ctx context.Context, token string) (*jwt.Claims, error) {
	return s.verify(ctx, s.access, s.accessRevoked, token)
}

// VerifyRefresh is VerifyAccess for refresh tokens.
func (s *Service) VerifyRefresh(ctx context.Context, token string) (*jwt.Claims, error) {
	return s.verify(ctx, s.refresh, s.refreshRevoked, token)
}

func (s *Service) verify(ctx context.Context, m *jwt.Manager, reg revocation.Registry, token string) (*jwt.Claims, error) {
	claims, err := m.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := reg.IsRevoked(ctx, revocationID(claims, token))
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Rotate consumes oldRefresh and issues a new pair. Consumption is an
// insert-if-absent on the refresh registry, so among concurrent callers
// presenting the same token exactly one gets a pair; the rest get ErrRevoked.
func (s *Service) Rotate(ctx context.Context, oldRefresh, subjectID, role string, generation uint32) (Pair, error) {
	claims, err := s.VerifyRefresh(ctx, oldRefresh)
	if err != nil {
		return Pair{}, err
	}
	if claims.Subject != subjectID {
		return Pair{}, fmt.Errorf("%w: subject mismatch", ErrInvalid)
	}

	won, err := s.refreshRevoked.Revoke(ctx, revocationID(claims, oldRefresh), claims.ExpiresAt.Time)
	if err != nil {
		return Pair{}, err
	}
	if !won {
		return Pair{}, ErrRevoked
	}

	return s.IssuePair(ctx, subjectID, role, generation)
}

// RevokeAccess blacklists an access token until its own expiry. Tokens that
// fail signature verification, and already expired ones, are ignored.
func (s *Service) RevokeAccess(ctx context.Context, token string) error {
	return s.revoke(ctx, s.access, s.accessRevoked, token)
}

// RevokeRefresh blacklists a refresh token until its own expiry.
func (s *Service) RevokeRefresh(ctx context.Context, token string) error {
	return s.revoke(ctx, s.refresh, s.refreshRevoked, token)
}

func (s *Service) revoke(ctx context.Context, m *jwt.Manager, reg revocation.Registry, token string) error {
	if token == "" {
		return nil
	}
	claims, err := m.ParseAllowExpired(token)
	if err != nil {
		return nil
	}
	_, err = reg.Revoke(ctx, revocationID(claims, token), claims.ExpiresAt.Time)
	return err
}

// InspectAccess returns the claims of an access token whose signature checks
// out, expired or not. Logout uses it to attribute the audit event.
func (s *Service) InspectAccess(token string) (*jwt.Claims, error) {
	return s.access.ParseAllowExpired(token)
}

// AccessTTL and RefreshTTL report the configured lifetimes.
func (s *Service) AccessTTL() time.Duration  { return s.access.TTL() }
func (s *Service) RefreshTTL() time.Duration { return s.refresh.TTL() }

// revocationID is the jti, or a digest of the raw token when it carries none.
func revocationID(claims *jwt.Claims, token string) string {
	if claims != nil && claims.ID != "" {
		return claims.ID
	}
	sum := sha256.Sum256([]byte(token))
	return "sha256:" + hex.EncodeToString(sum[:])
}
