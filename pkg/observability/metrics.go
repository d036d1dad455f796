package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	LoginAttemptsTotal    *prometheus.CounterVec
	TokenValidationsTotal *prometheus.CounterVec
	TokensIssuedTotal     prometheus.Counter

	// Blacklist metrics
	BlacklistCacheSize        prometheus.Gauge
	BlacklistStoreErrorsTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatekeeper_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_login_attempts_total",
				Help: "Total number of login attempts",
			},
			[]string{"result"},
		),
		TokenValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_token_validations_total",
				Help: "Total number of token validations",
			},
			[]string{"result"},
		),
		TokensIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatekeeper_tokens_issued_total",
				Help: "Total number of access tokens issued",
			},
		),
		BlacklistCacheSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatekeeper_blacklist_cache_size",
				Help: "Current number of entries in the blacklist cache",
			},
		),
		BlacklistStoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_blacklist_store_errors_total",
				Help: "Total number of blacklist store failures",
			},
			[]string{"operation"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatekeeper_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatekeeper_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.TokenValidationsTotal,
		m.TokensIssuedTotal,
		m.BlacklistCacheSize,
		m.BlacklistStoreErrorsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// RecordLoginAttempt increments the login attempt counter.
// Safe on a nil receiver so metrics stay optional in tests.
func (m *Metrics) RecordLoginAttempt(result string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordTokenValidation increments the token validation counter
func (m *Metrics) RecordTokenValidation(result string) {
	if m == nil {
		return
	}
	m.TokenValidationsTotal.WithLabelValues(result).Inc()
}

// RecordTokenIssued increments the issued token counter
func (m *Metrics) RecordTokenIssued() {
	if m == nil {
		return
	}
	m.TokensIssuedTotal.Inc()
}

// SetBlacklistCacheSize updates the blacklist cache size gauge
func (m *Metrics) SetBlacklistCacheSize(size int) {
	if m == nil {
		return
	}
	m.BlacklistCacheSize.Set(float64(size))
}

// RecordBlacklistStoreError increments the blacklist store error counter
func (m *Metrics) RecordBlacklistStoreError(operation string) {
	if m == nil {
		return
	}
	m.BlacklistStoreErrorsTotal.WithLabelValues(operation).Inc()
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// CollectDBStats copies connection pool stats into the gauges.
// Intended to run on a ticker.
func (m *Metrics) CollectDBStats(stats func() (active, idle int)) {
	if m == nil {
		return
	}
	active, idle := stats()
	m.DBConnectionsActive.Set(float64(active))
	m.DBConnectionsIdle.Set(float64(idle))
}
