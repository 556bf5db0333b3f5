package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lumoraenergy/lumora/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[string]int64), expires: make(map[string]time.Duration)}
}

func (f *fakeCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(_ context.Context, key string, d time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expires[key] = d
	return redis.NewBoolResult(true, nil)
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	counter := newFakeCounter()
	l := NewRedisLimiter(counter, 2, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false} {
		ok, err := l.Allow(context.Background(), "leads:1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "request %d", i)
	}
	require.Len(t, counter.expires, 1)
	for _, d := range counter.expires {
		assert.Equal(t, time.Minute, d)
	}

	now = now.Add(time.Minute)
	ok, err := l.Allow(context.Background(), "leads:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok, "next window resets the count")
}

func TestRedisLimiterError(t *testing.T) {
	counter := newFakeCounter()
	counter.err = errors.New("connection refused")
	l := NewRedisLimiter(counter, 2, time.Minute)

	_, err := l.Allow(context.Background(), "k")
	assert.ErrorContains(t, err, "connection refused")
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow(context.Background(), "a")
		assert.True(t, ok)
	}
	ok, _ := l.Allow(context.Background(), "a")
	assert.False(t, ok)

	ok, _ = l.Allow(context.Background(), "b")
	assert.True(t, ok, "keys are independent")

	now = now.Add(61 * time.Second)
	ok, _ = l.Allow(context.Background(), "a")
	assert.True(t, ok)
}

func TestNewSelectsImplementation(t *testing.T) {
	l, closeFn := New(context.Background(), config.RateLimitConfig{Requests: 0, Window: time.Minute}, nil)
	assert.IsType(t, unlimited{}, l)
	assert.NoError(t, closeFn())

	l, _ = New(context.Background(), config.RateLimitConfig{Requests: 5, Window: time.Minute}, nil)
	assert.IsType(t, &MemoryLimiter{}, l)

	l, _ = New(context.Background(), config.RateLimitConfig{RedisURL: "://bad", Requests: 5, Window: time.Minute}, nil)
	assert.IsType(t, &MemoryLimiter{}, l)
}

type errLimiter struct{}

func (errLimiter) Allow(context.Context, string) (bool, error) { return false, errors.New("boom") }

func TestMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })
	handler := Middleware(NewMemoryLimiter(1, time.Minute), "leads", nil)(next)

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/leads", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusCreated, send("10.0.0.2"))

	failOpen := Middleware(errLimiter{}, "leads", nil)(next)
	rec := httptest.NewRecorder()
	failOpen.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/leads", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:1234"
	assert.Equal(t, "192.0.2.10", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", ClientIP(req))
}
