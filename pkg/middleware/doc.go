// Package middleware provides HTTP middleware for authentication, authorization, and rate limiting.
//
// # Overview
//
// This package implements request processing middleware including bearer token
// verification, role checks, and login rate limiting (in-memory and Redis-backed).
//
// # Middleware Components
//
// AuthMiddleware: JWT bearer token verification
//
//	authMW := middleware.NewAuthMiddleware(authService, false)
//	protected.Use(authMW.Handler)
//	// Extracts the Bearer token, verifies signature/expiry/revocation,
//	// and adds the claims and raw token to the request context
//
// RequireAdmin: role gate for admin-only routes
//
//	adminRoutes.Use(middleware.RequireAdmin())
//
// LoginRateLimitMiddleware: in-memory per-IP throttling of credential endpoints
//
//	loginMW := middleware.NewLoginRateLimitMiddleware(nil)
//	loginRoutes.Use(loginMW.Handler)
//
// DistributedLoginRateLimitMiddleware: Redis-backed variant for multi-instance
// deployments
//
//	loginMW := middleware.NewDistributedLoginRateLimitMiddleware(redisClient, nil)
//
// # Related Packages
//
//   - pkg/auth: token verification and blacklist
//   - pkg/contextkeys: context keys for claims and tokens
package middleware
