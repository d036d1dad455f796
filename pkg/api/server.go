package api

import (
	"context"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gathering/gatekeeper/pkg/auth"
	"github.com/gathering/gatekeeper/pkg/httputil"
	"github.com/gathering/gatekeeper/pkg/middleware"
	"github.com/gathering/gatekeeper/pkg/observability"
)

// defaultMaxBodyBytes caps request bodies on the auth endpoints. Login
// and registration payloads are tiny; anything larger is abuse.
const defaultMaxBodyBytes = 64 * 1024

// Config holds server-level options
type Config struct {
	// AllowedOrigins for CORS. Empty disables cross-origin access.
	AllowedOrigins []string
	// LoginRateLimit throttles the credential endpoints per client IP.
	// Nil uses the default login limit.
	LoginRateLimit *middleware.RateLimitConfig
	// RedisClient, when set, makes the login rate limit shared across
	// instances instead of per-process.
	RedisClient *redis.Client
	// MaxBodyBytes caps request body size. Zero uses the default.
	MaxBodyBytes int64
	// TracingEnabled wraps the handler with OpenTelemetry HTTP spans.
	TracingEnabled bool
	// BaseContext bounds the server's background maintenance, such as
	// rate-limiter bucket cleanup. Nil means the process lifetime.
	BaseContext context.Context
}

// Server serves the authentication HTTP API
type Server struct {
	service *auth.Service
	router  *mux.Router
	handler http.Handler
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewServer creates the API server and mounts all routes
func NewServer(service *auth.Service, cfg Config, logger *observability.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	s := &Server{
		service: service,
		router:  mux.NewRouter(),
		logger:  logger,
		metrics: metrics,
	}
	s.setupRoutes(cfg)

	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
		httputil.CORSMiddleware(cfg.AllowedOrigins),
		observability.HTTPMetricsMiddleware(metrics),
		httputil.MaxBytesMiddleware(cfg.MaxBodyBytes),
	)
	s.handler = chain(s.router)
	if cfg.TracingEnabled {
		s.handler = otelhttp.NewHandler(s.handler, "gatekeeper-api")
	}
	return s
}

// setupRoutes configures the auth routes
func (s *Server) setupRoutes(cfg Config) {
	rateLimit := s.loginRateLimiter(cfg)
	requireAuth := middleware.NewAuthMiddleware(s.service, false)

	s.router.Handle("/auth/login", rateLimit(http.HandlerFunc(s.login))).Methods("POST")
	s.router.Handle("/auth/login/json", rateLimit(http.HandlerFunc(s.loginJSON))).Methods("POST")
	s.router.Handle("/auth/register", rateLimit(http.HandlerFunc(s.register))).Methods("POST")

	s.router.Handle("/auth/me", requireAuth.Handler(http.HandlerFunc(s.currentUser))).Methods("GET")
	s.router.Handle("/auth/verify", requireAuth.Handler(http.HandlerFunc(s.verify))).Methods("POST")
	s.router.Handle("/auth/logout", requireAuth.Handler(http.HandlerFunc(s.logout))).Methods("POST")

	adminOnly := middleware.RequireAdmin()
	s.router.Handle("/auth/blacklist/stats",
		requireAuth.Handler(adminOnly(http.HandlerFunc(s.blacklistStats)))).Methods("GET")
}

// loginRateLimiter picks the distributed limiter when redis is
// available, the in-memory one otherwise
func (s *Server) loginRateLimiter(cfg Config) func(http.Handler) http.Handler {
	if cfg.RedisClient != nil {
		m := middleware.NewDistributedLoginRateLimitMiddleware(cfg.RedisClient, cfg.LoginRateLimit)
		return m.Handler
	}
	m := middleware.NewLoginRateLimitMiddleware(cfg.LoginRateLimit)
	ctx := cfg.BaseContext
	if ctx == nil {
		ctx = context.Background()
	}
	m.StartCleanup(ctx)
	return m.Handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router returns the underlying mux router so callers can mount
// additional routes before serving
func (s *Server) Router() *mux.Router {
	return s.router
}
