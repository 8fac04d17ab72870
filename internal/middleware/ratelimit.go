package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/response"
)

// Limiter decides whether one more request for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// TokenBucket refills rate tokens per second up to capacity.
type TokenBucket struct {
	rate       float64
	capacity   int
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	return &TokenBucket{
		rate:       rate,
		capacity:   capacity,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

func (tb *TokenBucket) Allow() bool {
	return tb.allowAt(time.Now())
}

func (tb *TokenBucket) allowAt(now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.tokens += elapsed * tb.rate
		tb.lastRefill = now
	}
	if tb.tokens > float64(tb.capacity) {
		tb.tokens = float64(tb.capacity)
	}
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// MemoryLimiter keeps one TokenBucket per key in process memory. Buckets
// idle for longer than idleTTL are dropped on the next sweep.
type MemoryLimiter struct {
	perMinute int
	idleTTL   time.Duration

	mu        sync.Mutex
	buckets   map[string]*memoryEntry
	lastSweep time.Time
}

type memoryEntry struct {
	bucket   *TokenBucket
	lastSeen time.Time
}

func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		perMinute: perMinute,
		idleTTL:   10 * time.Minute,
		buckets:   make(map[string]*memoryEntry),
		lastSweep: time.Now(),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()
	m.mu.Lock()
	if now.Sub(m.lastSweep) > m.idleTTL {
		for k, e := range m.buckets {
			if now.Sub(e.lastSeen) > m.idleTTL {
				delete(m.buckets, k)
			}
		}
		m.lastSweep = now
	}
	e, ok := m.buckets[key]
	if !ok {
		e = &memoryEntry{bucket: NewTokenBucket(float64(m.perMinute)/60, m.perMinute)}
		m.buckets[key] = e
	}
	e.lastSeen = now
	m.mu.Unlock()

	return e.bucket.allowAt(now), nil
}

// RedisLimiter is a fixed one-minute window shared by every instance.
type RedisLimiter struct {
	client    redis.Cmdable
	perMinute int
	prefix    string
	now       func() time.Time
}

func NewRedisLimiter(client redis.Cmdable, perMinute int) *RedisLimiter {
	return &RedisLimiter{client: client, perMinute: perMinute, prefix: "ratelimit", now: time.Now}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := r.now().Unix() / 60
	k := fmt.Sprintf("%s:%s:%d", r.prefix, key, window)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(r.perMinute), nil
}

// KeyByPersonOrIP limits signed-in callers per person and everyone else per IP.
func KeyByPersonOrIP(c *gin.Context) string {
	if pid, ok := c.Get(response.PersonIDKey); ok {
		return fmt.Sprintf("person:%v", pid)
	}
	return "ip:" + c.ClientIP()
}

// RateLimit rejects requests over the limiter's budget with 429. A limiter
// backend failure lets the request through.
func RateLimit(l Limiter, log logging.Logger, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = KeyByPersonOrIP
	}
	return func(c *gin.Context) {
		key := keyFunc(c)
		ok, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn(c.Request.Context(), "rate limiter unavailable", "key", key, "err", err.Error())
			c.Next()
			return
		}
		if !ok {
			response.Abort(c, log, apperr.RateLimited("too many requests, slow down"))
			return
		}
		c.Next()
	}
}
