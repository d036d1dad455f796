package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gathering/gatekeeper/pkg/auth"
	"github.com/gathering/gatekeeper/pkg/observability"
	"github.com/gathering/gatekeeper/pkg/storage"
	"github.com/gathering/gatekeeper/pkg/storage/postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Auth configuration
	Auth AuthConfig

	// Storage configuration
	Storage storage.Config

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// CORSAllowedOrigins lists origins allowed to call the API from a
	// browser. Empty disables cross-origin access.
	CORSAllowedOrigins []string
}

// AuthConfig holds token signing, admin bypass and blacklist settings
type AuthConfig struct {
	// JWTSecret signs and verifies access tokens. Required.
	JWTSecret string

	// TokenTTL is the access token lifetime
	TokenTTL time.Duration

	// AdminEmail and AdminPasswordHash enable the environment-configured
	// admin account when both are set. The hash must be a bcrypt digest.
	AdminEmail        string
	AdminPasswordHash string

	// BlacklistBackend selects the durable blacklist store: postgres or redis
	BlacklistBackend string

	// BlacklistCacheSize bounds the in-memory blacklist cache
	BlacklistCacheSize int

	// BlacklistStoreTimeout bounds each durable store call
	BlacklistStoreTimeout time.Duration

	// BlacklistSweepSchedule is a cron expression for expired-entry cleanup
	BlacklistSweepSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Auth:          loadAuthConfig(),
		Storage:       loadStorageConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("GATEKEEPER_HOST", "0.0.0.0"),
		Port:            getEnv("GATEKEEPER_PORT", "8080"),
		ReadTimeout:     getEnvDuration("GATEKEEPER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("GATEKEEPER_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("GATEKEEPER_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("GATEKEEPER_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("GATEKEEPER_HEALTH_PORT", "9090"),

		CORSAllowedOrigins: splitAndTrim(getEnv("GATEKEEPER_CORS_ALLOWED_ORIGINS", "")),
	}
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// loadAuthConfig loads auth configuration from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:              getEnv("GATEKEEPER_JWT_SECRET", ""),
		TokenTTL:               getEnvDuration("GATEKEEPER_TOKEN_TTL", auth.DefaultTokenTTL),
		AdminEmail:             getEnv("GATEKEEPER_ADMIN_EMAIL", ""),
		AdminPasswordHash:      getEnv("GATEKEEPER_ADMIN_PASSWORD_HASH", ""),
		BlacklistBackend:       getEnv("GATEKEEPER_BLACKLIST_BACKEND", "postgres"),
		BlacklistCacheSize:     getEnvInt("GATEKEEPER_BLACKLIST_CACHE_SIZE", auth.DefaultCacheMaxSize),
		BlacklistStoreTimeout:  getEnvDuration("GATEKEEPER_BLACKLIST_STORE_TIMEOUT", auth.DefaultStoreTimeout),
		BlacklistSweepSchedule: getEnv("GATEKEEPER_BLACKLIST_SWEEP_SCHEDULE", "@hourly"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	// PostgreSQL config
	if pgURL := getEnv("GATEKEEPER_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if replicaURLs := getEnv("GATEKEEPER_POSTGRES_REPLICA_URLS", ""); replicaURLs != "" {
		cfg.PostgresReplicaURLs = postgres.ParseReplicaURLs(replicaURLs)
	}
	if maxConns := getEnvInt("GATEKEEPER_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("GATEKEEPER_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("GATEKEEPER_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	// Redis config
	if redisURL := getEnv("GATEKEEPER_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("GATEKEEPER_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("GATEKEEPER_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("GATEKEEPER_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("GATEKEEPER_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	return cfg
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("GATEKEEPER_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("GATEKEEPER_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("GATEKEEPER_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("GATEKEEPER_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("GATEKEEPER_OTEL_SERVICE_NAME", "gatekeeper"),
		OTelServiceVersion: getEnv("GATEKEEPER_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("GATEKEEPER_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate auth config
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.BlacklistCacheSize <= 0 {
		return fmt.Errorf("blacklist cache size must be positive")
	}
	if c.Auth.AdminEmail != "" && c.Auth.AdminPasswordHash == "" {
		return fmt.Errorf("admin password hash is required when admin email is set")
	}
	if c.Auth.AdminPasswordHash != "" && !strings.HasPrefix(c.Auth.AdminPasswordHash, "$2") {
		return fmt.Errorf("admin password hash must be a bcrypt digest")
	}

	// Validate storage config
	switch c.Auth.BlacklistBackend {
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required")
		}
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis blacklist backend")
		}
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required")
		}
	default:
		return fmt.Errorf("invalid blacklist backend: %s (must be postgres or redis)", c.Auth.BlacklistBackend)
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// AdminConfig builds the auth admin account config
func (c *Config) AdminConfig() auth.AdminConfig {
	return auth.AdminConfig{
		Email:        c.Auth.AdminEmail,
		PasswordHash: c.Auth.AdminPasswordHash,
	}
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
