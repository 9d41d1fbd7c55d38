package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/database"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a caller identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RateLimiter implements a simple in-process token bucket rate limiter
type RateLimiter struct {
	mu           sync.Mutex
	tokens       map[string]int
	lastRefill   map[string]time.Time
	maxTokens    int
	refillRate   int           // tokens per refill
	refillPeriod time.Duration // how often to refill
	now          func() time.Time
}

// NewRateLimiter creates a new rate limiter
// maxTokens: maximum tokens per caller
// refillRate: how many tokens to add per refill period
// refillPeriod: how often to refill tokens
func NewRateLimiter(maxTokens, refillRate int, refillPeriod time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:       make(map[string]int),
		lastRefill:   make(map[string]time.Time),
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
		now:          time.Now,
	}
}

// Allow takes a token for key if one is available
func (rl *RateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	if _, exists := rl.tokens[key]; !exists {
		rl.tokens[key] = rl.maxTokens
		rl.lastRefill[key] = now
	}

	elapsed := now.Sub(rl.lastRefill[key])
	refills := int(elapsed / rl.refillPeriod)
	if refills > 0 {
		rl.tokens[key] = min(rl.tokens[key]+refills*rl.refillRate, rl.maxTokens)
		rl.lastRefill[key] = rl.lastRefill[key].Add(time.Duration(refills) * rl.refillPeriod)
	}

	decision := Decision{Limit: rl.maxTokens}
	if rl.tokens[key] > 0 {
		rl.tokens[key]--
		decision.Allowed = true
	} else {
		decision.RetryAfter = rl.refillPeriod - now.Sub(rl.lastRefill[key])
	}
	decision.Remaining = rl.tokens[key]
	return decision, nil
}

// Sweep drops buckets that have refilled to capacity and returns how many it
// removed. A dropped key starts over with a full bucket, so nothing changes
// for the caller.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	periods := (rl.maxTokens + rl.refillRate - 1) / rl.refillRate
	full := time.Duration(periods) * rl.refillPeriod
	now := rl.now()

	removed := 0
	for key, last := range rl.lastRefill {
		if now.Sub(last) >= full {
			delete(rl.tokens, key)
			delete(rl.lastRefill, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done
func (rl *RateLimiter) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// RedisRateLimiter is a fixed-window limiter shared by every replica through Redis
type RedisRateLimiter struct {
	redis  *database.Redis
	limit  int
	window time.Duration
	prefix string
}

// NewRedisRateLimiter allows limit requests per window for each key
func NewRedisRateLimiter(redis *database.Redis, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		redis:  redis,
		limit:  limit,
		window: window,
		prefix: "ratelimit:generate:",
	}
}

// Allow counts a hit for key in the current window
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, ttl, err := rl.redis.IncrWindow(ctx, rl.prefix+key, rl.window)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{
		Allowed:   count <= int64(rl.limit),
		Limit:     rl.limit,
		Remaining: max(rl.limit-int(count), 0),
	}
	if !decision.Allowed {
		decision.RetryAfter = ttl
	}
	return decision, nil
}

// RateLimitMiddleware rejects callers, keyed by client IP, that exceed the limit.
// A failing limiter lets the request through.
func RateLimitMiddleware(rl Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := rl.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(decision.RetryAfter.Round(time.Second).Seconds())))
			RespondErrorWithRetry(c, http.StatusTooManyRequests, ErrCodeRateLimited,
				"Too many requests, please try again later", int(decision.RetryAfter.Milliseconds()))
			return
		}

		c.Next()
	}
}
