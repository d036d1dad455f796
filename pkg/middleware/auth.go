package middleware

import (
	"net/http"
	"strings"

	"github.com/gathering/gatekeeper/pkg/auth"
	"github.com/gathering/gatekeeper/pkg/contextkeys"
)

// AuthMiddleware verifies bearer tokens on protected routes
type AuthMiddleware struct {
	service  *auth.Service
	optional bool // If true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(service *auth.Service, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		service:  service,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with token verification.
// On success the verified claims and the raw token land in the request
// context; the raw token is kept so the logout handler can revoke it.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract token from Authorization header
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			m.unauthorizedResponse(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.unauthorizedResponse(w, "invalid authorization header format")
			return
		}

		token := parts[1]

		claims, err := m.service.VerifyRequest(r.Context(), token)
		if err != nil {
			m.unauthorizedResponse(w, "invalid or expired token")
			return
		}

		ctx := contextkeys.WithClaims(r.Context(), claims)
		ctx = contextkeys.WithToken(ctx, token)
		ctx = contextkeys.WithUserID(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

// GetClaims extracts verified token claims from a request
func GetClaims(r *http.Request) *auth.Claims {
	v := r.Context().Value(contextkeys.ClaimsKey)
	if v == nil {
		return nil
	}
	claims, ok := v.(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// RequireRole creates middleware that checks the token's role claim
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r)
			if claims == nil {
				forbiddenResponse(w, "authentication required")
				return
			}

			if claims.Role != role {
				forbiddenResponse(w, "insufficient role permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin restricts a route to admin tokens
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(auth.AdminRole)
}

func forbiddenResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
