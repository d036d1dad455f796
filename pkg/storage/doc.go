// Package storage holds shared storage configuration for the PostgreSQL
// and Redis backends.
//
// The concrete store implementations live in subpackages:
//
//   - postgres: durable user accounts and token blacklist entries
//   - redis: TTL-based token blacklist entries for multi-instance deployments
package storage
