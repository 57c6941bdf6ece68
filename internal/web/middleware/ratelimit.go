package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/gradereports/internal/core"
)

// Limiter decides whether one more request fits a client's budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit rejects requests beyond limiter's budget with 429.
// Requests are keyed by scope and client IP. Limiter errors let the request
// through; an unavailable store must not take the API down with it.
func RateLimit(limiter Limiter, scope string, window time.Duration) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := core.GetIPAddressFromContext(r.Context())
			if ip == "" {
				ip = r.RemoteAddr
			}

			ok, err := limiter.Allow(r.Context(), scope+":"+ip)
			if err != nil {
				slog.Warn("rate limit check failed", "scope", scope, "ip", ip, "error", err)
				ok = true
			}
			if !ok {
				w.Header().Set("Retry-After", retryAfter)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"kind":"rate_limit","error":"rate limit exceeded","message":"Too many requests.","code":"RATE001"}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ----------------------------------------------------------------------------
// In-process limiter
// ----------------------------------------------------------------------------

// MemoryLimiter is a fixed-window counter per key held in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	now      func() time.Time

	stop chan struct{}
	once sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// NewMemoryLimiter allows rate requests per window per key. Stale keys are
// swept every window until Close.
func NewMemoryLimiter(rate int, window time.Duration) *MemoryLimiter {
	ml := &MemoryLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go ml.cleanup()
	return ml
}

func (ml *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(ml.window)
	defer ticker.Stop()
	for {
		select {
		case <-ml.stop:
			return
		case <-ticker.C:
			ml.mu.Lock()
			now := ml.now()
			for key, v := range ml.visitors {
				if now.Sub(v.lastReset) > ml.window*2 {
					delete(ml.visitors, key)
				}
			}
			ml.mu.Unlock()
		}
	}
}

// Allow consumes one token for key.
func (ml *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.now()
	v, exists := ml.visitors[key]
	if !exists || now.Sub(v.lastReset) > ml.window {
		ml.visitors[key] = &visitor{tokens: ml.rate - 1, lastReset: now}
		return ml.rate > 0, nil
	}

	if v.tokens <= 0 {
		return false, nil
	}
	v.tokens--
	return true, nil
}

// Close stops the sweeper.
func (ml *MemoryLimiter) Close() {
	ml.once.Do(func() { close(ml.stop) })
}

// ----------------------------------------------------------------------------
// Redis limiter
// ----------------------------------------------------------------------------

// RedisKeyPrefix namespaces rate limit counters.
const RedisKeyPrefix = "ratelimit:"

// RedisLimiter is a fixed-window counter shared by every replica through
// Redis INCR with a window-long expiry.
type RedisLimiter struct {
	client *redis.Client
	rate   int
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter allows rate requests per window per key.
func NewRedisLimiter(client *redis.Client, rate int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, rate: rate, window: window, now: time.Now}
}

// Allow increments the key's counter for the current window.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := rl.now().UnixNano() / int64(rl.window)
	redisKey := fmt.Sprintf("%s%s:%d", RedisKeyPrefix, key, bucket)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}

	return incr.Val() <= int64(rl.rate), nil
}
