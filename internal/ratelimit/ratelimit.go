// Package ratelimit throttles the public form endpoints with fixed windows,
// shared through Redis when configured and per-process otherwise.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lumoraenergy/lumora/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLimited is reported to clients that exceed the window.
var ErrLimited = errors.New("rate limit exceeded")

const keyPrefix = "lumora:ratelimit:"

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Counter is the subset of *redis.Client used by RedisLimiter.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisLimiter counts requests per window in Redis.
type RedisLimiter struct {
	client Counter
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client Counter, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, now: time.Now}
}

// Allow increments the counter for the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := l.now().UnixNano() / int64(l.window)
	redisKey := keyPrefix + key + ":" + strconv.FormatInt(slot, 10)

	n, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate counter expiry: %w", err)
		}
	}
	return n <= int64(l.limit), nil
}

// MemoryLimiter counts requests per window in process memory.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	count int
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(limit int, win time.Duration) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, window: win, now: time.Now, windows: make(map[string]*window)}
}

// Allow increments the counter for the current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		if len(l.windows) > 10000 {
			l.evictLocked(now)
		}
		w = &window{start: now}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.limit, nil
}

func (l *MemoryLimiter) evictLocked(now time.Time) {
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, k)
		}
	}
}

type unlimited struct{}

func (unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

// New builds the limiter described by cfg. A non-positive request count
// disables limiting; an unreachable Redis falls back to memory.
func New(ctx context.Context, cfg config.RateLimitConfig, logger *zap.Logger) (Limiter, func() error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() error { return nil }

	if cfg.Requests <= 0 || cfg.Window <= 0 {
		logger.Warn("rate limiting disabled", zap.String("op", "ratelimit.New"))
		return unlimited{}, noop
	}
	if cfg.RedisURL == "" {
		return NewMemoryLimiter(cfg.Requests, cfg.Window), noop
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("invalid redis url; using in-memory rate limiting",
			zap.String("op", "ratelimit.New"), zap.Error(err))
		return NewMemoryLimiter(cfg.Requests, cfg.Window), noop
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable; using in-memory rate limiting",
			zap.String("op", "ratelimit.New"), zap.Error(err))
		_ = client.Close()
		return NewMemoryLimiter(cfg.Requests, cfg.Window), noop
	}
	return NewRedisLimiter(client, cfg.Requests, cfg.Window), client.Close
}

// Middleware throttles requests per client IP under the given scope.
// Limiter errors let the request through.
func Middleware(l Limiter, scope string, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := l.Allow(r.Context(), scope+":"+ClientIP(r))
			if err != nil {
				logger.Warn("rate limiter failed; allowing request",
					zap.String("op", "ratelimit.Middleware"),
					zap.String("scope", scope),
					zap.Error(err),
				)
				allowed = true
			}
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": ErrLimited.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop or the remote address host.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
