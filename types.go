package forumauth

import (
	"context"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/forumauth/internal/audit"
	"github.com/MrEthical07/forumauth/internal/limiters"
	"github.com/MrEthical07/forumauth/tokens"
)

// CredentialRecord is the slice of a user account the engine reads and
// writes. The surrounding application may keep more columns; stores only
// need to round-trip these.
type CredentialRecord struct {
	ID                string
	Email             string
	Username          string
	PasswordHash      string
	Role              string
	LoginAttempts     int
	LockedUntil       *time.Time
	PasswordChangedAt time.Time
	LastLogin         *time.Time
	// TokenVersion is embedded in every issued token and bumped on password
	// change; tokens carrying an older value are treated as revoked.
	TokenVersion uint32
	CreatedAt    time.Time
}

func (r *CredentialRecord) lockoutState() limiters.LockoutState {
	return limiters.LockoutState{Attempts: r.LoginAttempts, LockedUntil: r.LockedUntil}
}

func (r *CredentialRecord) setLockoutState(s limiters.LockoutState) {
	r.LoginAttempts = s.Attempts
	r.LockedUntil = s.LockedUntil
}

// User is the client-safe projection of a CredentialRecord.
type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Username          string     `json:"username"`
	Role              string     `json:"role"`
	PasswordChangedAt time.Time  `json:"password_changed_at"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Public strips secrets and lockout bookkeeping.
func (r *CredentialRecord) Public() User {
	return User{
		ID:                r.ID,
		Email:             r.Email,
		Username:          r.Username,
		Role:              r.Role,
		PasswordChangedAt: r.PasswordChangedAt,
		LastLogin:         r.LastLogin,
		CreatedAt:         r.CreatedAt,
	}
}

// CredentialStore is the persistence collaborator. Implementations must
// return ErrUserNotFound for missing records and a *DuplicateError when
// Create collides on email or username.
type CredentialStore interface {
	GetByID(ctx context.Context, id string) (*CredentialRecord, error)
	FindByEmail(ctx context.Context, email string) (*CredentialRecord, error)
	FindByUsername(ctx context.Context, username string) (*CredentialRecord, error)
	Create(ctx context.Context, record *CredentialRecord) error
	// Update loads the record, applies fn, and saves the result atomically
	// with respect to other Update calls for the same id. If fn returns an
	// error nothing is saved and the error is returned.
	Update(ctx context.Context, id string, fn func(*CredentialRecord) error) (*CredentialRecord, error)
}

// RegisterRequest is the input for Engine.Register.
type RegisterRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginResult is returned by Engine.Login.
type LoginResult struct {
	User   User
	Tokens tokens.Pair
}

// ChangePasswordRequest is the input for Engine.ChangePassword. The tokens
// are revoked immediately on success; every other token of the user is
// invalidated by the generation bump.
type ChangePasswordRequest struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
	AccessToken     string
	RefreshToken    string
}

// AuthResult is returned by Engine.ValidateAccess.
type AuthResult struct {
	UserID    string
	Role      string
	TokenID   string
	ExpiresAt time.Time
	Mode      ValidationMode
}

// RevocationStats reports process-local registry sizes. Counts are -1 for
// Redis-backed registries.
type RevocationStats struct {
	Access  int
	Refresh int
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives AuditEvent values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an AuditSink that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based AuditSink.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs events through a *slog.Logger.
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a JSONWriterSink that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a SlogSink. A nil logger uses slog.Default.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
