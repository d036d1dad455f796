package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Version is reported in health responses, set at build time via ldflags.
var Version = "1.0.0"

const readinessTimeout = 5 * time.Second

// CheckFunc reports the health of a single dependency.
type CheckFunc func(ctx context.Context) DependencyStatus

// DependencyStatus is the result of one dependency check.
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// HealthStatus aggregates all dependency checks.
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

type dependencyCheck struct {
	fn CheckFunc
	// critical checks fail readiness when unhealthy; others only degrade it
	critical bool
}

// HealthChecker runs dependency checks for the readiness probe. The
// database is critical: when it is down the service cannot authenticate at
// all. Redis and custom checks only degrade, matching the fail-open
// revocation path.
type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]dependencyCheck
}

// NewHealthChecker builds a checker over the given handles. Either may be
// nil, in which case its check is omitted.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client) *HealthChecker {
	h := &HealthChecker{checks: make(map[string]dependencyCheck)}
	if db != nil {
		h.checks["database"] = dependencyCheck{fn: databaseCheck(db), critical: true}
	}
	if redisClient != nil {
		h.checks["redis"] = dependencyCheck{fn: redisCheck(redisClient)}
	}
	return h
}

// RegisterCheck adds a named dependency check. An unhealthy custom check
// degrades overall status rather than failing readiness.
func (h *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = dependencyCheck{fn: check}
}

// Check runs every registered check and aggregates the results.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := make(map[string]dependencyCheck, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	result := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      Version,
		Dependencies: make(map[string]DependencyStatus, len(checks)),
	}

	for name, c := range checks {
		dep := c.fn(ctx)
		result.Dependencies[name] = dep

		switch {
		case dep.Status == StatusUnhealthy && c.critical:
			result.Status = StatusUnhealthy
		case dep.Status != StatusHealthy && result.Status != StatusUnhealthy:
			result.Status = StatusDegraded
		}
	}

	return result
}

// Liveness always reports healthy while the process can serve requests.
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness runs all checks; 503 only when a critical dependency is down.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(status)
}

func databaseCheck(db *sql.DB) CheckFunc {
	return func(ctx context.Context) DependencyStatus {
		start := time.Now()
		dep := DependencyStatus{Status: StatusHealthy, Timestamp: start}

		var one int
		if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
			dep.Status = StatusUnhealthy
			dep.Message = err.Error()
			dep.Latency = time.Since(start)
			return dep
		}
		dep.Latency = time.Since(start)

		if stats := db.Stats(); stats.MaxOpenConnections > 0 && stats.OpenConnections >= stats.MaxOpenConnections {
			dep.Status = StatusDegraded
			dep.Message = "connection pool exhausted"
		}
		return dep
	}
}

func redisCheck(client *redis.Client) CheckFunc {
	return func(ctx context.Context) DependencyStatus {
		start := time.Now()
		dep := DependencyStatus{Status: StatusHealthy, Timestamp: start}

		if err := client.Ping(ctx).Err(); err != nil {
			dep.Status = StatusUnhealthy
			dep.Message = err.Error()
		}
		dep.Latency = time.Since(start)
		return dep
	}
}

// RegisterHealthRoutes mounts the probe endpoints on mux.
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}
