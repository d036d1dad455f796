package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/gathering/gatekeeper/pkg/auth"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// UserStore implements auth.UserStore backed by PostgreSQL. Reads go to a
// replica when one is available.
type UserStore struct {
	pool Pool
}

// NewUserStore creates a PostgreSQL-backed user store
func NewUserStore(pool Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = "id, email, name, role, password_hash, is_active, created_at"

// GetUserByEmail looks up a user by case-insensitive email address.
// Returns (nil, nil) when no user exists.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE email_lower = $1
	`, userColumns)

	row := s.pool.Replica().QueryRowContext(ctx, query, strings.ToLower(email))
	return scanUser(row)
}

// GetUserByID looks up a user by ID. Returns (nil, nil) when no user exists.
func (s *UserStore) GetUserByID(ctx context.Context, id string) (*auth.User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE id = $1
	`, userColumns)

	row := s.pool.Replica().QueryRowContext(ctx, query, id)
	return scanUser(row)
}

// CreateUser inserts a new user with the default role. Returns
// auth.ErrEmailTaken when the email is already registered.
func (s *UserStore) CreateUser(ctx context.Context, email, name, passwordHash string) (*auth.User, error) {
	query := fmt.Sprintf(`
		INSERT INTO users (email, email_lower, name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, userColumns)

	row := s.pool.Primary().QueryRowContext(ctx, query,
		email,
		strings.ToLower(email),
		name,
		passwordHash,
		auth.DefaultRole,
	)

	user, err := scanUser(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, auth.ErrEmailTaken
		}
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("failed to create user: no row returned")
	}

	return user, nil
}

func scanUser(row *sql.Row) (*auth.User, error) {
	var user auth.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}
