// Package postgres implements the durable user and token blacklist stores
// on top of PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/gathering/gatekeeper/pkg/observability"
	"github.com/gathering/gatekeeper/pkg/storage"
)

// Pool selects a database handle for reads and writes. Lookups go through
// Replica, everything else through Primary.
type Pool interface {
	Primary() *sql.DB
	Replica() *sql.DB
}

type singlePool struct {
	db *sql.DB
}

func (p singlePool) Primary() *sql.DB { return p.db }
func (p singlePool) Replica() *sql.DB { return p.db }

// NewSinglePool adapts one database handle to the Pool interface, for
// callers that manage their own connection and have no replicas.
func NewSinglePool(db *sql.DB) Pool {
	return singlePool{db: db}
}

// ConnectionManager manages the primary PostgreSQL connection and optional
// read replicas with round-robin selection for reads.
type ConnectionManager struct {
	primary  *sql.DB
	replicas []*sql.DB
	current  uint32
	mu       sync.RWMutex
	config   storage.Config
	logger   *observability.Logger
}

// NewConnectionManager connects to the primary and any configured replicas.
// Replica failures are logged and skipped; the primary must be reachable.
func NewConnectionManager(config storage.Config, logger *observability.Logger) (*ConnectionManager, error) {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	cm := &ConnectionManager{
		config:   config,
		logger:   logger,
		replicas: make([]*sql.DB, 0, len(config.PostgresReplicaURLs)),
	}

	primary, err := openPool(config.PostgresURL, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	cm.primary = primary

	for i, replicaURL := range config.PostgresReplicaURLs {
		replica, err := openPool(replicaURL, config)
		if err != nil {
			logger.WithError(err).Warnf("skipping replica %d", i)
			continue
		}
		// Replicas get a smaller pool than the primary
		maxConns := config.PostgresMaxConns / 2
		if maxConns < 2 {
			maxConns = 2
		}
		replica.SetMaxOpenConns(maxConns)
		cm.replicas = append(cm.replicas, replica)
	}

	logger.WithField("replicas", len(cm.replicas)).Info("postgres connection manager initialized")
	return cm, nil
}

func openPool(url string, config storage.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	db.SetMaxOpenConns(config.PostgresMaxConns)
	db.SetMaxIdleConns(config.PostgresMinConns)
	db.SetConnMaxLifetime(config.PostgresMaxLifetime)
	db.SetConnMaxIdleTime(config.PostgresMaxIdleTime)

	timeout := config.PostgresTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return db, nil
}

// Primary returns the primary database connection (for writes)
func (cm *ConnectionManager) Primary() *sql.DB {
	return cm.primary
}

// Replica returns a read replica using round-robin selection, falling back
// to the primary when no replicas are available.
func (cm *ConnectionManager) Replica() *sql.DB {
	cm.mu.RLock()
	replicaCount := len(cm.replicas)
	cm.mu.RUnlock()

	if replicaCount == 0 {
		return cm.primary
	}

	index := atomic.AddUint32(&cm.current, 1)

	cm.mu.RLock()
	replica := cm.replicas[int(index%uint32(replicaCount))]
	cm.mu.RUnlock()

	return replica
}

// HealthCheck pings the primary and reports when all replicas are down.
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.primary.PingContext(ctx); err != nil {
		return fmt.Errorf("primary unhealthy: %w", err)
	}

	cm.mu.RLock()
	replicas := make([]*sql.DB, len(cm.replicas))
	copy(replicas, cm.replicas)
	cm.mu.RUnlock()

	var unhealthy []string
	for i, replica := range replicas {
		if err := replica.PingContext(ctx); err != nil {
			unhealthy = append(unhealthy, fmt.Sprintf("replica-%d", i))
		}
	}

	if len(unhealthy) > 0 && len(unhealthy) == len(replicas) {
		return fmt.Errorf("all replicas unhealthy: %s", strings.Join(unhealthy, ", "))
	}

	return nil
}

// Stats returns pool statistics for the primary connection
func (cm *ConnectionManager) Stats() sql.DBStats {
	return cm.primary.Stats()
}

// RemoveUnhealthyReplicas closes and drops replicas that fail pings
func (cm *ConnectionManager) RemoveUnhealthyReplicas(ctx context.Context) int {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	healthy := make([]*sql.DB, 0, len(cm.replicas))
	removed := 0

	for _, replica := range cm.replicas {
		if err := replica.PingContext(ctx); err != nil {
			replica.Close()
			removed++
		} else {
			healthy = append(healthy, replica)
		}
	}

	cm.replicas = healthy
	return removed
}

// StartHealthCheckRoutine periodically removes unhealthy replicas until the
// context is cancelled.
func (cm *ConnectionManager) StartHealthCheckRoutine(ctx context.Context, interval time.Duration) {
	if interval == 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				removed := cm.RemoveUnhealthyReplicas(checkCtx)
				cancel()

				if removed > 0 {
					cm.logger.WithField("removed", removed).Warn("removed unhealthy replicas")
				}

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close closes the primary and all replica connections
func (cm *ConnectionManager) Close() error {
	var errs []error

	if err := cm.primary.Close(); err != nil {
		errs = append(errs, fmt.Errorf("primary close error: %w", err))
	}

	cm.mu.Lock()
	replicas := cm.replicas
	cm.replicas = nil
	cm.mu.Unlock()

	for i, replica := range replicas {
		if err := replica.Close(); err != nil {
			errs = append(errs, fmt.Errorf("replica-%d close error: %w", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("connection close errors: %v", errs)
	}

	return nil
}

// ParseReplicaURLs parses a comma-separated list of replica URLs
func ParseReplicaURLs(replicaURLsStr string) []string {
	if replicaURLsStr == "" {
		return nil
	}

	urls := strings.Split(replicaURLsStr, ",")
	result := make([]string, 0, len(urls))

	for _, url := range urls {
		trimmed := strings.TrimSpace(url)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
