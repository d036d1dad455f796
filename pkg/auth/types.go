package auth

import (
	"context"
	"errors"
	"time"
)

const (
	// AdminSubject is the distinguished subject for the environment-configured admin
	AdminSubject = "admin"
	// DefaultRole is assigned to tokens and users that carry no explicit role
	DefaultRole = "user"
	// AdminRole marks administrative users
	AdminRole = "admin"
)

var (
	// ErrInvalidCredentials is returned for any credential mismatch.
	// Unknown email and wrong password both map here.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrInvalidToken is returned for any token that fails verification:
	// malformed, bad signature, expired, missing subject, or revoked.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrEmailTaken is returned when registering with an existing email
	ErrEmailTaken = errors.New("email already registered")

	// ErrUserNotFound is returned when a user lookup finds nothing
	ErrUserNotFound = errors.New("user not found")

	// ErrUserInactive is returned when a user exists but is deactivated
	ErrUserInactive = errors.New("user is inactive")
)

// User represents an authenticated principal
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// UserStore provides credential lookup and creation.
// Implementations return (nil, nil) when no user matches.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, email, name, passwordHash string) (*User, error)
}

// BlacklistStore is the durable backing store for revoked token fingerprints
type BlacklistStore interface {
	// Insert records a fingerprint until expiresAt. Inserting an existing
	// fingerprint is not an error.
	Insert(ctx context.Context, fingerprint string, expiresAt time.Time, userID, reason string) error

	// Lookup returns the expiry for a fingerprint that is still active.
	// The second return is false when the fingerprint is absent or expired.
	Lookup(ctx context.Context, fingerprint string) (time.Time, bool, error)

	// DeleteExpired removes entries whose expiry has passed
	DeleteExpired(ctx context.Context) (int64, error)

	// CountActive returns the number of entries that have not yet expired
	CountActive(ctx context.Context) (int64, error)
}
