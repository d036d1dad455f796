package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestDistributedRateLimiter_Allow(t *testing.T) {
	_, client := setupRedis(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
	}, "")
	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "ip:203.0.113.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = rl.Allow(ctx, "ip:203.0.113.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = rl.Allow(ctx, "ip:203.0.113.1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDistributedRateLimiter_WindowExpiry(t *testing.T) {
	mr, client := setupRedis(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, "")
	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "ip:203.0.113.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = rl.Allow(ctx, "ip:203.0.113.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	mr.FastForward(2 * time.Minute)

	allowed, err = rl.Allow(ctx, "ip:203.0.113.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestDistributedRateLimiter_FailsOpen(t *testing.T) {
	mr, client := setupRedis(t)
	rl := NewDistributedRateLimiter(client, LoginRateLimitConfig(), "")

	mr.Close()

	allowed, err := rl.Allow(context.Background(), "ip:203.0.113.1")
	assert.Error(t, err)
	assert.True(t, allowed)
}

func TestDistributedRateLimiter_RemainingAndReset(t *testing.T) {
	_, client := setupRedis(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    time.Minute,
	}, "")
	ctx := context.Background()

	remaining, err := rl.Remaining(ctx, "ip:203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)

	_, err = rl.Allow(ctx, "ip:203.0.113.1")
	require.NoError(t, err)

	remaining, err = rl.Remaining(ctx, "ip:203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, 4, remaining)

	require.NoError(t, rl.Reset(ctx, "ip:203.0.113.1"))

	remaining, err = rl.Remaining(ctx, "ip:203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

func TestDistributedLoginRateLimitMiddleware(t *testing.T) {
	_, client := setupRedis(t)
	m := NewDistributedLoginRateLimitMiddleware(client, &RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
	})

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	do()

	rec = do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestDistributedLoginRateLimitMiddleware_RedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	m := NewDistributedLoginRateLimitMiddleware(client, LoginRateLimitConfig())

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	mr.Close()

	// Fail open by default
	req := httptest.NewRequest("POST", "/auth/login", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Fail closed when fallback is disabled
	m.SetFallbackEnabled(false)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDistributedLoginRateLimitMiddleware_HealthCheck(t *testing.T) {
	mr, client := setupRedis(t)
	m := NewDistributedLoginRateLimitMiddleware(client, nil)

	assert.NoError(t, m.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, m.HealthCheck(context.Background()))
}
