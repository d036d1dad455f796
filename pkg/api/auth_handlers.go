package api

import (
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/gathering/gatekeeper/pkg/auth"
	"github.com/gathering/gatekeeper/pkg/contextkeys"
	"github.com/gathering/gatekeeper/pkg/httputil"
	"github.com/gathering/gatekeeper/pkg/middleware"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxNameLength     = 100
)

func validEmail(address string) bool {
	if address == "" {
		return false
	}
	parsed, err := mail.ParseAddress(address)
	return err == nil && parsed.Address == address
}

// login handles POST /auth/login. The body is form-encoded in the
// OAuth2 password-grant shape, so the email arrives in the username
// field.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.WriteBadRequest(w, "invalid form body")
		return
	}

	email := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		httputil.WriteValidationError(w, "username and password are required")
		return
	}

	s.issueToken(w, r, email, password)
}

// loginJSON handles POST /auth/login/json
func (s *Server) loginJSON(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteValidationError(w, "email and password are required")
		return
	}

	s.issueToken(w, r, req.Email, req.Password)
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, email, password string) {
	token, _, err := s.service.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "Incorrect email or password")
			return
		}
		s.logger.WithError(err).Error("login failed")
		httputil.WriteInternalError(w, errors.New("login failed"))
		return
	}

	s.metrics.RecordTokenIssued()
	httputil.WriteSuccess(w, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.service.TokenTTL().Seconds()),
	})
}

// register handles POST /auth/register
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if !httputil.ValidateAll(w,
		func() (bool, string) { return req.Email != "", "email is required" },
		func() (bool, string) { return validEmail(req.Email), "email must be a valid email address" },
		func() (bool, string) { return req.Name != "", "name is required" },
		func() (bool, string) {
			return len(req.Name) <= maxNameLength, "name must be at most 100 characters"
		},
		func() (bool, string) {
			return len(req.Password) >= minPasswordLength, "password must be at least 8 characters"
		},
		func() (bool, string) {
			return len(req.Password) <= maxPasswordLength, "password must be at most 128 characters"
		},
	) {
		return
	}

	user, err := s.service.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			httputil.WriteBadRequest(w, "Email already registered")
			return
		}
		s.logger.WithError(err).Error("registration failed")
		httputil.WriteInternalError(w, errors.New("registration failed"))
		return
	}

	httputil.WriteCreated(w, newUserResponse(user))
}

// currentUser handles GET /auth/me
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	user, err := s.service.CurrentUser(r.Context(), claims)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrUserInactive) {
			httputil.WriteUnauthorized(w, "user not found or inactive")
			return
		}
		s.logger.WithError(err).Error("user lookup failed")
		httputil.WriteInternalError(w, errors.New("user lookup failed"))
		return
	}

	httputil.WriteSuccess(w, newUserResponse(user))
}

// verify handles POST /auth/verify. The auth middleware has already
// validated the token, so reaching this handler means it is good.
func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	resp := VerifyResponse{
		Valid:  true,
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC().Truncate(time.Second)
	}
	httputil.WriteSuccess(w, resp)
}

// logout handles POST /auth/logout, revoking the presented token
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	token := contextkeys.GetToken(r.Context())
	if claims == nil || token == "" {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	if !s.service.Logout(r.Context(), token, claims.Subject) {
		httputil.WriteBadRequest(w, "Failed to invalidate token")
		return
	}

	httputil.WriteSuccess(w, map[string]string{"message": "Successfully logged out"})
}

// blacklistStats handles GET /auth/blacklist/stats
func (s *Server) blacklistStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, s.service.BlacklistStats(r.Context()))
}
