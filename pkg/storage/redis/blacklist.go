// Package redis implements a token blacklist store backed by Redis.
// Entries carry a TTL matching the token expiry, so expired entries
// vanish without an explicit sweep. It suits multi-instance deployments
// where every instance must observe a revocation immediately.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gathering/gatekeeper/pkg/storage"
)

const keyPrefix = "gatekeeper:blacklist:"

// NewClient creates a Redis client from storage config and verifies
// connectivity.
func NewClient(config storage.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB >= 0 {
		opts.DB = config.RedisDB
	}
	if config.RedisMaxRetries > 0 {
		opts.MaxRetries = config.RedisMaxRetries
	}
	if config.RedisPoolSize > 0 {
		opts.PoolSize = config.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// BlacklistStore implements auth.BlacklistStore using Redis keys with TTLs
type BlacklistStore struct {
	client *redis.Client
}

// NewBlacklistStore creates a Redis-backed blacklist store
func NewBlacklistStore(client *redis.Client) *BlacklistStore {
	return &BlacklistStore{client: client}
}

// Insert records a revoked token fingerprint with a TTL matching the token
// expiry. Already-expired entries are not stored.
func (s *BlacklistStore) Insert(ctx context.Context, fingerprint string, expiresAt time.Time, userID, reason string) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	value := strconv.FormatInt(expiresAt.Unix(), 10)
	if err := s.client.Set(ctx, keyPrefix+fingerprint, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to insert blacklist entry: %w", err)
	}

	return nil
}

// Lookup reports whether a fingerprint is blacklisted. Redis expires
// entries itself, so any present key is still active.
func (s *BlacklistStore) Lookup(ctx context.Context, fingerprint string) (time.Time, bool, error) {
	value, err := s.client.Get(ctx, keyPrefix+fingerprint).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to look up blacklist entry: %w", err)
	}

	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// Corrupt entry, drop it
		s.client.Del(ctx, keyPrefix+fingerprint)
		return time.Time{}, false, nil
	}

	return time.Unix(unix, 0), true, nil
}

// DeleteExpired is a no-op since Redis evicts entries via TTL
func (s *BlacklistStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// CountActive counts active blacklist entries by scanning the key prefix
func (s *BlacklistStore) CountActive(ctx context.Context) (int64, error) {
	var count int64
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan blacklist entries: %w", err)
		}

		count += int64(len(keys))
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return count, nil
}
