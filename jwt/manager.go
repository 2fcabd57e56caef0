package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWS algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret. It is the default.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// TokenType is carried in the typ claim.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

var (
	// ErrExpired is returned for tokens past exp (after leeway).
	ErrExpired = errors.New("token expired")
	// ErrMalformed is returned when the input is not a decodable JWT.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalid covers bad signatures, wrong issuer or audience, and any other verification failure.
	ErrInvalid = errors.New("token invalid")
	// ErrTypeMismatch is returned when a correctly signed token carries the wrong typ claim.
	ErrTypeMismatch = errors.New("token type mismatch")
)

// Config configures one Manager. Each token type gets its own Manager and
// its own key material.
type Config struct {
	Type          TokenType
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	KeyID         string
	// Now overrides the clock used for iat/exp and validation. Defaults to time.Now.
	Now func() time.Time
}

// Claims is the payload of every token this package issues.
type Claims struct {
	Role       string    `json:"role,omitempty"`
	Type       TokenType `json:"typ"`
	Generation uint32    `json:"gen,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens of a single type.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Type != TypeAccess && cfg.Type != TypeRefresh {
		return nil, errors.New("token type must be access or refresh")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 secret must be at least 32 bytes")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key")
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// TTL returns the configured lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Issue signs a new token for subject with a fresh jti.
func (m *Manager) Issue(subject, role string, generation uint32) (string, *Claims, error) {
	if subject == "" {
		return "", nil, errors.New("subject is required")
	}

	now := m.config.Now()
	claims := &Claims{
		Role:       role,
		Type:       m.config.Type,
		Generation: generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(m.method(), claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	signKey, err := m.signKey()
	if err != nil {
		return "", nil, err
	}
	signed, err := token.SignedString(signKey)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Parse verifies signature, expiry, issuer and audience through the jwt
// library, then checks the typ claim. Errors are one of ErrExpired,
// ErrMalformed, ErrInvalid or ErrTypeMismatch, wrapping the library cause.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, false)
}

// ParseAllowExpired is Parse without the time checks: a token past exp (or
// before nbf) is accepted, but it must still carry our signature, issuer,
// audience, subject, exp and typ. It serves revocation, where the caller
// presents a token that may already be dead but must not be able to plant
// arbitrary ids.
func (m *Manager) ParseAllowExpired(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, true)
}

func (m *Manager) parse(tokenStr string, allowExpired bool) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithTimeFunc(m.config.Now),
		jwt.WithExpirationRequired(),
	}
	if allowExpired {
		// Skips every registered-claim check; issuer and audience are
		// re-checked by hand below.
		options = append(options, jwt.WithoutClaimsValidation())
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if m.config.KeyID != "" {
			if kid, _ := t.Header["kid"].(string); kid != m.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return m.verifyKey()
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, jwt.ErrTokenInvalidClaims)
	}
	if allowExpired {
		if err := m.checkUntimedClaims(claims); err != nil {
			return nil, err
		}
	}
	if claims.IssuedAt != nil {
		maxAllowed := m.config.Now().Add(m.config.MaxFutureIAT)
		if claims.IssuedAt.Time.After(maxAllowed) {
			return nil, fmt.Errorf("%w: iat too far in the future", ErrInvalid)
		}
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalid)
	}
	if claims.Type != m.config.Type {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrTypeMismatch, claims.Type, m.config.Type)
	}

	return claims, nil
}

func (m *Manager) checkUntimedClaims(claims *Claims) error {
	if claims.ExpiresAt == nil {
		return fmt.Errorf("%w: %w", ErrInvalid, jwt.ErrTokenRequiredClaimMissing)
	}
	if m.config.Issuer != "" && claims.Issuer != m.config.Issuer {
		return fmt.Errorf("%w: %w", ErrInvalid, jwt.ErrTokenInvalidIssuer)
	}
	if m.config.Audience != "" && !slices.Contains(claims.Audience, m.config.Audience) {
		return fmt.Errorf("%w: %w", ErrInvalid, jwt.ErrTokenInvalidAudience)
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (m *Manager) signKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		if len(m.config.PrivateKey) == 0 {
			return nil, errors.New("manager is verify-only")
		}
		return parseEdPrivateKey(m.config.PrivateKey)
	default:
		return m.config.PrivateKey, nil
	}
}

func (m *Manager) verifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPublicKey(m.config.PublicKey)
	default:
		return m.config.PrivateKey, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
