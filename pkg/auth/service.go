package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/gathering/gatekeeper/pkg/audit"
	"github.com/gathering/gatekeeper/pkg/observability"
)

// dummyPasswordHash is verified against when no matching credential
// exists, so a rejected login costs the same whether or not the email
// is known. Hash of an unused random password.
const dummyPasswordHash = "$2b$12$LQv3c1yqBWVHxkd0LHAkCOYz6TtxMQJqhN8/X4.VTtYWWQIe0u0S."

// AdminConfig holds the environment-sourced admin credential.
// The admin authenticates against this fixed credential instead of the
// user store and carries the distinguished subject AdminSubject.
type AdminConfig struct {
	Email        string
	PasswordHash string
}

// Enabled reports whether an admin credential is configured
func (c AdminConfig) Enabled() bool {
	return c.Email != "" && c.PasswordHash != ""
}

// Service orchestrates credential verification, token minting, request
// verification, and logout
type Service struct {
	users     UserStore
	codec     *Codec
	blacklist *Blacklist
	admin     AdminConfig
	recorder  audit.Recorder
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewService creates an auth service
func NewService(users UserStore, codec *Codec, blacklist *Blacklist, admin AdminConfig, recorder audit.Recorder, logger *observability.Logger, metrics *observability.Metrics) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Service{
		users:     users,
		codec:     codec,
		blacklist: blacklist,
		admin:     admin,
		recorder:  recorder,
		logger:    logger,
		metrics:   metrics,
	}
}

// TokenTTL returns the configured access token lifetime
func (s *Service) TokenTTL() time.Duration {
	return s.codec.TTL()
}

// Authenticate verifies an email/password pair. The admin credential is
// checked first, then the user store. Unknown email and wrong password
// both return ErrInvalidCredentials with identical timing as far as
// practical (a dummy hash is verified when no credential matches).
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	if admin := s.verifyAdmin(email, password); admin != nil {
		s.metrics.RecordLoginAttempt("success")
		s.recorder.Record(ctx, audit.Event{
			Type:    audit.EventAuthSuccess,
			UserID:  AdminSubject,
			Message: fmt.Sprintf("admin login: %s", email),
		})
		return admin, nil
	}

	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	storedHash := dummyPasswordHash
	if user != nil {
		storedHash = user.PasswordHash
	}
	passwordValid := VerifyPassword(password, storedHash)

	if user != nil && passwordValid && user.IsActive {
		s.metrics.RecordLoginAttempt("success")
		s.recorder.Record(ctx, audit.Event{
			Type:    audit.EventAuthSuccess,
			UserID:  user.ID,
			Message: fmt.Sprintf("user login: %s", email),
		})
		return user, nil
	}

	// Do not reveal which part failed
	s.metrics.RecordLoginAttempt("failure")
	s.recorder.Record(ctx, audit.Event{
		Type:     audit.EventAuthFailure,
		Severity: audit.SeverityWarning,
		Message:  fmt.Sprintf("failed login attempt for: %s", email),
	})
	return nil, ErrInvalidCredentials
}

// Login authenticates and mints an access token carrying the user's id,
// email, and role
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.codec.Encode(user.ID, user.Email, user.Role, 0)
	if err != nil {
		return "", nil, fmt.Errorf("failed to mint token: %w", err)
	}
	return token, user, nil
}

// VerifyRequest decodes a token and checks it against the blacklist.
// Every failure mode surfaces as ErrInvalidToken.
func (s *Service) VerifyRequest(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		s.metrics.RecordTokenValidation("invalid")
		return nil, ErrInvalidToken
	}

	if s.blacklist.Contains(ctx, Fingerprint(tokenString)) {
		s.metrics.RecordTokenValidation("revoked")
		return nil, ErrInvalidToken
	}

	s.metrics.RecordTokenValidation("valid")
	return claims, nil
}

// Logout revokes a token until its natural expiry. Returns false only
// when the token does not decode at all; revoking an already-revoked
// token is not an error.
func (s *Service) Logout(ctx context.Context, tokenString, userID string) bool {
	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		return false
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.After(time.Now()) {
		s.blacklist.Add(ctx, Fingerprint(tokenString), claims.ExpiresAt.Time, userID)
	}

	s.recorder.Record(ctx, audit.Event{
		Type:    audit.EventLogout,
		UserID:  userID,
		Message: fmt.Sprintf("user logged out: %s", userID),
	})
	return true
}

// Register creates a new user with the default role
func (s *Service) Register(ctx context.Context, email, name, password string) (*User, error) {
	existing, err := s.users.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, email, name, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.recorder.Record(ctx, audit.Event{
		Type:    audit.EventUserRegistered,
		UserID:  user.ID,
		Message: fmt.Sprintf("new user registered: %s", email),
	})
	return user, nil
}

// CurrentUser resolves verified claims to a live user. The admin
// subject resolves to a synthetic user; everyone else must exist in the
// store and be active.
func (s *Service) CurrentUser(ctx context.Context, claims *Claims) (*User, error) {
	if claims.Subject == AdminSubject {
		email := claims.Email
		if email == "" {
			email = s.admin.Email
		}
		return &User{
			ID:       AdminSubject,
			Email:    email,
			Name:     "Administrator",
			Role:     AdminRole,
			IsActive: true,
		}, nil
	}

	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

// BlacklistStats exposes blacklist statistics for the admin endpoint
func (s *Service) BlacklistStats(ctx context.Context) BlacklistStats {
	return s.blacklist.Stats(ctx)
}

// verifyAdmin checks the fixed admin credential. Email comparison is
// constant-time and case-insensitive, and the password is always
// verified so timing does not reveal whether the admin email exists.
func (s *Service) verifyAdmin(email, password string) *User {
	if !s.admin.Enabled() {
		VerifyPassword(password, dummyPasswordHash)
		return nil
	}

	emailMatch := subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(email)),
		[]byte(strings.ToLower(s.admin.Email)),
	) == 1
	passwordValid := VerifyPassword(password, s.admin.PasswordHash)

	if emailMatch && passwordValid {
		return &User{
			ID:       AdminSubject,
			Email:    s.admin.Email,
			Name:     "Administrator",
			Role:     AdminRole,
			IsActive: true,
		}
	}
	return nil
}
