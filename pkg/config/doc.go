// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings except the JWT signing secret, which is
// always required.
//
// # Configuration Structure
//
// Server settings:
//
//	GATEKEEPER_HOST="0.0.0.0"
//	GATEKEEPER_PORT="8080"
//	GATEKEEPER_HEALTH_PORT="9090"
//	GATEKEEPER_READ_TIMEOUT="15s"
//	GATEKEEPER_WRITE_TIMEOUT="15s"
//
// Auth settings:
//
//	GATEKEEPER_JWT_SECRET="..."          # required
//	GATEKEEPER_TOKEN_TTL="24h"
//	GATEKEEPER_ADMIN_EMAIL="admin@example.com"
//	GATEKEEPER_ADMIN_PASSWORD_HASH="$2b$12$..."
//	GATEKEEPER_BLACKLIST_BACKEND="postgres"  # postgres, redis
//	GATEKEEPER_BLACKLIST_CACHE_SIZE="10000"
//	GATEKEEPER_BLACKLIST_STORE_TIMEOUT="2s"
//	GATEKEEPER_BLACKLIST_SWEEP_SCHEDULE="@hourly"
//
// Storage settings:
//
//	GATEKEEPER_POSTGRES_URL="postgres://localhost/gatekeeper"
//	GATEKEEPER_POSTGRES_REPLICA_URLS="postgres://replica1/gatekeeper,postgres://replica2/gatekeeper"
//	GATEKEEPER_POSTGRES_MAX_CONNS="25"
//	GATEKEEPER_REDIS_URL="redis://localhost:6379"
//	GATEKEEPER_REDIS_POOL_SIZE="10"
//
// Observability settings:
//
//	GATEKEEPER_LOG_LEVEL="info"  # debug, info, warn, error
//	GATEKEEPER_METRICS_ENABLED="true"
//	GATEKEEPER_OTEL_ENABLED="true"
//	GATEKEEPER_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Token TTL: %s\n", cfg.Auth.TokenTTL)
//
// # Related Packages
//
//   - pkg/auth: Uses auth configuration
//   - pkg/storage: Uses storage configuration
//   - pkg/observability: Uses observability configuration
package config
