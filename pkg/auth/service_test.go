package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryUserStore backs service tests without a database
type memoryUserStore struct {
	users  map[string]*User // keyed by lowercased email
	err    error
	nextID int
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: make(map[string]*User)}
}

func (s *memoryUserStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (s *memoryUserStore) GetUserByID(_ context.Context, id string) (*User, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, user := range s.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memoryUserStore) CreateUser(_ context.Context, email, name, passwordHash string) (*User, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.nextID++
	user := &User{
		ID:           fmt.Sprintf("user-%d", s.nextID),
		Email:        email,
		Name:         name,
		Role:         DefaultRole,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[strings.ToLower(email)] = user
	return user, nil
}

func (s *memoryUserStore) addUser(t *testing.T, email, password string, active bool) *User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	user, err := s.CreateUser(context.Background(), email, "Test User", hash)
	require.NoError(t, err)
	user.IsActive = active
	s.users[strings.ToLower(email)].IsActive = active
	return user
}

func newTestService(t *testing.T, users UserStore, admin AdminConfig) *Service {
	t.Helper()
	codec, err := NewCodec(testSecret, time.Hour)
	require.NoError(t, err)
	blacklist := NewBlacklist(newStubStore(), DefaultBlacklistConfig(), nil, nil)
	return NewService(users, codec, blacklist, admin, nil, nil, nil)
}

func TestService_Authenticate(t *testing.T) {
	users := newMemoryUserStore()
	users.addUser(t, "alice@example.com", "password123", true)
	svc := newTestService(t, users, AdminConfig{})
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	// Email lookup is case-insensitive
	_, err = svc.Authenticate(ctx, "ALICE@Example.com", "password123")
	assert.NoError(t, err)
}

func TestService_Authenticate_WrongPassword(t *testing.T) {
	users := newMemoryUserStore()
	users.addUser(t, "alice@example.com", "password123", true)
	svc := newTestService(t, users, AdminConfig{})

	_, err := svc.Authenticate(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Authenticate_UnknownEmail(t *testing.T) {
	svc := newTestService(t, newMemoryUserStore(), AdminConfig{})

	_, err := svc.Authenticate(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Authenticate_InactiveUser(t *testing.T) {
	users := newMemoryUserStore()
	users.addUser(t, "alice@example.com", "password123", false)
	svc := newTestService(t, users, AdminConfig{})

	_, err := svc.Authenticate(context.Background(), "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Authenticate_StoreError(t *testing.T) {
	users := newMemoryUserStore()
	users.err = errors.New("connection refused")
	svc := newTestService(t, users, AdminConfig{})

	_, err := svc.Authenticate(context.Background(), "alice@example.com", "password123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Authenticate_Admin(t *testing.T) {
	hash, err := HashPassword("admin secret")
	require.NoError(t, err)
	svc := newTestService(t, newMemoryUserStore(), AdminConfig{
		Email:        "admin@example.com",
		PasswordHash: hash,
	})
	ctx := context.Background()

	admin, err := svc.Authenticate(ctx, "Admin@Example.COM", "admin secret")
	require.NoError(t, err)
	assert.Equal(t, AdminSubject, admin.ID)
	assert.Equal(t, AdminRole, admin.Role)

	_, err = svc.Authenticate(ctx, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Login_MintsToken(t *testing.T) {
	users := newMemoryUserStore()
	created := users.addUser(t, "alice@example.com", "password123", true)
	svc := newTestService(t, users, AdminConfig{})

	token, user, err := svc.Login(context.Background(), "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	claims, err := svc.VerifyRequest(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, DefaultRole, claims.Role)
}

func TestService_VerifyRequest_GarbageToken(t *testing.T) {
	svc := newTestService(t, newMemoryUserStore(), AdminConfig{})

	_, err := svc.VerifyRequest(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_Logout_RevokesToken(t *testing.T) {
	users := newMemoryUserStore()
	users.addUser(t, "alice@example.com", "password123", true)
	svc := newTestService(t, users, AdminConfig{})
	ctx := context.Background()

	token, user, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	require.True(t, svc.Logout(ctx, token, user.ID))

	_, err = svc.VerifyRequest(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_Logout_BadToken(t *testing.T) {
	svc := newTestService(t, newMemoryUserStore(), AdminConfig{})

	assert.False(t, svc.Logout(context.Background(), "not-a-token", "user-1"))
}

func TestService_Logout_Idempotent(t *testing.T) {
	users := newMemoryUserStore()
	users.addUser(t, "alice@example.com", "password123", true)
	svc := newTestService(t, users, AdminConfig{})
	ctx := context.Background()

	token, user, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	assert.True(t, svc.Logout(ctx, token, user.ID))
	assert.True(t, svc.Logout(ctx, token, user.ID))
}

func TestService_Register(t *testing.T) {
	users := newMemoryUserStore()
	svc := newTestService(t, users, AdminConfig{})
	ctx := context.Background()

	user, err := svc.Register(ctx, "bob@example.com", "Bob", "password123")
	require.NoError(t, err)
	assert.Equal(t, DefaultRole, user.Role)
	assert.True(t, user.IsActive)

	// The stored credential is a bcrypt digest of the password, not the
	// password itself
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.True(t, VerifyPassword("password123", user.PasswordHash))
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	users := newMemoryUserStore()
	users.addUser(t, "bob@example.com", "password123", true)
	svc := newTestService(t, users, AdminConfig{})

	_, err := svc.Register(context.Background(), "BOB@example.com", "Bob", "other password")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestService_CurrentUser(t *testing.T) {
	users := newMemoryUserStore()
	users.addUser(t, "alice@example.com", "password123", true)
	svc := newTestService(t, users, AdminConfig{})
	ctx := context.Background()

	token, created, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	claims, err := svc.VerifyRequest(ctx, token)
	require.NoError(t, err)

	user, err := svc.CurrentUser(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestService_CurrentUser_Admin(t *testing.T) {
	hash, err := HashPassword("admin secret")
	require.NoError(t, err)
	svc := newTestService(t, newMemoryUserStore(), AdminConfig{
		Email:        "admin@example.com",
		PasswordHash: hash,
	})
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "admin@example.com", "admin secret")
	require.NoError(t, err)
	claims, err := svc.VerifyRequest(ctx, token)
	require.NoError(t, err)

	// The admin has no row in the user store; a synthetic user comes back
	user, err := svc.CurrentUser(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, AdminSubject, user.ID)
	assert.Equal(t, AdminRole, user.Role)
	assert.True(t, user.IsActive)
}

func TestService_CurrentUser_DeletedUser(t *testing.T) {
	users := newMemoryUserStore()
	users.addUser(t, "alice@example.com", "password123", true)
	svc := newTestService(t, users, AdminConfig{})
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	claims, err := svc.VerifyRequest(ctx, token)
	require.NoError(t, err)

	delete(users.users, "alice@example.com")

	_, err = svc.CurrentUser(ctx, claims)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_CurrentUser_DeactivatedUser(t *testing.T) {
	users := newMemoryUserStore()
	users.addUser(t, "alice@example.com", "password123", true)
	svc := newTestService(t, users, AdminConfig{})
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	claims, err := svc.VerifyRequest(ctx, token)
	require.NoError(t, err)

	users.users["alice@example.com"].IsActive = false

	_, err = svc.CurrentUser(ctx, claims)
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestService_BlacklistStats(t *testing.T) {
	users := newMemoryUserStore()
	users.addUser(t, "alice@example.com", "password123", true)
	svc := newTestService(t, users, AdminConfig{})
	ctx := context.Background()

	token, user, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	svc.Logout(ctx, token, user.ID)

	stats := svc.BlacklistStats(ctx)
	assert.Equal(t, 1, stats.CacheSize)
	assert.Equal(t, int64(1), stats.StoreActive)
	assert.True(t, stats.StoreAvailable)
}
