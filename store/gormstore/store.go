// Package gormstore is a forumauth.CredentialStore over GORM. Production runs
// on Postgres; tests and local development use SQLite.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/forumauth"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// credential is the table row. UsernameKey is the lower-cased username and
// carries the case-insensitive unique index; Username keeps the display form.
type credential struct {
	ID                string `gorm:"primaryKey;size:36"`
	Email             string `gorm:"uniqueIndex;not null;size:254"`
	Username          string `gorm:"not null;size:32"`
	UsernameKey       string `gorm:"uniqueIndex;not null;size:32"`
	PasswordHash      string `gorm:"not null"`
	Role              string `gorm:"not null;size:32"`
	LoginAttempts     int    `gorm:"not null;default:0"`
	LockedUntil       *time.Time
	PasswordChangedAt time.Time `gorm:"not null"`
	LastLogin         *time.Time
	TokenVersion      uint32    `gorm:"not null;default:1"`
	CreatedAt         time.Time `gorm:"not null"`
}

// TableName pins the table name regardless of GORM naming strategy.
func (credential) TableName() string { return "credentials" }

// Store implements forumauth.CredentialStore on a *gorm.DB.
type Store struct {
	db *gorm.DB
}

var _ forumauth.CredentialStore = (*Store)(nil)

// New wraps db. Call Migrate before first use.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// OpenPostgres connects with unique-violation translation enabled.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), gormConfig())
}

// OpenSQLite opens a file database, or an in-memory one for ":memory:". An
// in-memory database lives on a single connection.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers anyway; one connection also keeps
	// ":memory:" a single database.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
}

// Migrate creates or updates the credentials table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&credential{}); err != nil {
		return fmt.Errorf("migrate credentials: %w", err)
	}
	return nil
}

// GetByID returns ErrUserNotFound when no row matches.
func (s *Store) GetByID(ctx context.Context, id string) (*forumauth.CredentialRecord, error) {
	return s.first(ctx, s.db, "id = ?", id)
}

// FindByEmail expects the engine's normalised (lower-case) email but
// lower-cases again so direct callers get the same behaviour.
func (s *Store) FindByEmail(ctx context.Context, email string) (*forumauth.CredentialRecord, error) {
	return s.first(ctx, s.db, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// FindByUsername matches case-insensitively through UsernameKey.
func (s *Store) FindByUsername(ctx context.Context, username string) (*forumauth.CredentialRecord, error) {
	return s.first(ctx, s.db, "username_key = ?", usernameKey(username))
}

func (s *Store) first(ctx context.Context, db *gorm.DB, query string, arg string) (*forumauth.CredentialRecord, error) {
	var row credential
	if err := db.WithContext(ctx).Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, forumauth.ErrUserNotFound
		}
		return nil, err
	}
	return row.record(), nil
}

// Create checks both unique columns inside the insert transaction so the
// reported field is exact; the unique indexes still settle races.
func (s *Store) Create(ctx context.Context, record *forumauth.CredentialRecord) error {
	row := fromRecord(record)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&credential{}).Where("email = ?", row.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &forumauth.DuplicateError{Field: "email"}
		}
		if err := tx.Model(&credential{}).Where("username_key = ?", row.UsernameKey).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &forumauth.DuplicateError{Field: "username"}
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return translateDuplicate(err)
	}
	return nil
}

// Update runs fn inside a transaction. On Postgres the row is read with
// SELECT ... FOR UPDATE; SQLite takes a database-wide write lock instead.
func (s *Store) Update(ctx context.Context, id string, fn func(*forumauth.CredentialRecord) error) (*forumauth.CredentialRecord, error) {
	var out *forumauth.CredentialRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var row credential
		if err := q.Where("id = ?", id).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return forumauth.ErrUserNotFound
			}
			return err
		}

		working := row.record()
		if err := fn(working); err != nil {
			return err
		}

		res := tx.Model(&credential{}).Where("id = ?", id).Updates(map[string]any{
			"password_hash":       working.PasswordHash,
			"role":                working.Role,
			"login_attempts":      working.LoginAttempts,
			"locked_until":        working.LockedUntil,
			"password_changed_at": working.PasswordChangedAt,
			"last_login":          working.LastLogin,
			"token_version":       working.TokenVersion,
		})
		if res.Error != nil {
			return res.Error
		}

		working.ID, working.Email, working.Username = row.ID, row.Email, row.Username
		out = working
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a record. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&credential{}).Error
}

func translateDuplicate(err error) error {
	var dup *forumauth.DuplicateError
	if errors.As(err, &dup) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key") {
		if strings.Contains(msg, "username") {
			return &forumauth.DuplicateError{Field: "username"}
		}
		return &forumauth.DuplicateError{Field: "email"}
	}
	return err
}

func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func fromRecord(r *forumauth.CredentialRecord) credential {
	return credential{
		ID:                r.ID,
		Email:             strings.ToLower(strings.TrimSpace(r.Email)),
		Username:          r.Username,
		UsernameKey:       usernameKey(r.Username),
		PasswordHash:      r.PasswordHash,
		Role:              r.Role,
		LoginAttempts:     r.LoginAttempts,
		LockedUntil:       r.LockedUntil,
		PasswordChangedAt: r.PasswordChangedAt,
		LastLogin:         r.LastLogin,
		TokenVersion:      r.TokenVersion,
		CreatedAt:         r.CreatedAt,
	}
}

func (c credential) record() *forumauth.CredentialRecord {
	return &forumauth.CredentialRecord{
		ID:                c.ID,
		Email:             c.Email,
		Username:          c.Username,
		PasswordHash:      c.PasswordHash,
		Role:              c.Role,
		LoginAttempts:     c.LoginAttempts,
		LockedUntil:       utcPtr(c.LockedUntil),
		PasswordChangedAt: c.PasswordChangedAt.UTC(),
		LastLogin:         utcPtr(c.LastLogin),
		TokenVersion:      c.TokenVersion,
		CreatedAt:         c.CreatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
