package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// BlacklistStore implements auth.BlacklistStore backed by PostgreSQL
type BlacklistStore struct {
	pool Pool
}

// NewBlacklistStore creates a PostgreSQL-backed blacklist store
func NewBlacklistStore(pool Pool) *BlacklistStore {
	return &BlacklistStore{pool: pool}
}

// Insert records a revoked token fingerprint. Inserting the same
// fingerprint twice is a no-op.
func (s *BlacklistStore) Insert(ctx context.Context, fingerprint string, expiresAt time.Time, userID, reason string) error {
	query := `
		INSERT INTO token_blacklist (token_hash, user_id, reason, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_hash) DO NOTHING
	`

	var uid sql.NullString
	if userID != "" {
		uid = sql.NullString{String: userID, Valid: true}
	}

	if _, err := s.pool.Primary().ExecContext(ctx, query, fingerprint, uid, reason, expiresAt); err != nil {
		return fmt.Errorf("failed to insert blacklist entry: %w", err)
	}

	return nil
}

// Lookup reports whether a fingerprint is blacklisted and still unexpired,
// returning the entry's expiry for cache promotion.
func (s *BlacklistStore) Lookup(ctx context.Context, fingerprint string) (time.Time, bool, error) {
	query := `
		SELECT expires_at
		FROM token_blacklist
		WHERE token_hash = $1 AND expires_at > NOW()
	`

	var expiresAt time.Time
	err := s.pool.Replica().QueryRowContext(ctx, query, fingerprint).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to look up blacklist entry: %w", err)
	}

	return expiresAt, true, nil
}

// DeleteExpired removes entries whose tokens have already expired and
// returns the number of rows deleted.
func (s *BlacklistStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.pool.Primary().ExecContext(ctx, "DELETE FROM token_blacklist WHERE expires_at <= NOW()")
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired blacklist entries: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted blacklist entries: %w", err)
	}

	return removed, nil
}

// CountActive returns the number of unexpired blacklist entries
func (s *BlacklistStore) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.Replica().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM token_blacklist WHERE expires_at > NOW()",
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count blacklist entries: %w", err)
	}

	return count, nil
}
