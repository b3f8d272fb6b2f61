package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prodapt-cloud/Pioneer-Training/pkg/types"
	"github.com/prodapt-cloud/Pioneer-Training/pkg/utils"
)

// TokenBucket is a refilling bucket for one client
type TokenBucket struct {
	mu             sync.Mutex
	capacity       float64
	tokens         float64
	refillRate     float64
	lastRefillTime time.Time
}

// NewTokenBucket creates a full bucket refilling at refillRate tokens/sec
func NewTokenBucket(capacity, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:       capacity,
		tokens:         capacity,
		refillRate:     refillRate,
		lastRefillTime: time.Now(),
	}
}

// TryConsume attempts to consume tokens from the bucket
func (tb *TokenBucket) TryConsume(tokens float64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= tokens {
		tb.tokens -= tokens
		return true
	}
	return false
}

// refill adds tokens based on time elapsed, capped at capacity
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()

	tb.tokens = min(tb.tokens+elapsed*tb.refillRate, tb.capacity)
	tb.lastRefillTime = now
}

type limiterEntry struct {
	bucket     *TokenBucket
	lastAccess time.Time
}

// RateLimiter applies a per-client token bucket. Clients are keyed by
// IP; entries idle for an hour are pruned.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rpm     int
	logger  *utils.Logger
}

// NewRateLimiter creates a limiter allowing rpm requests per minute
// per client, with a burst of the same size.
func NewRateLimiter(rpm int, logger *utils.Logger) *RateLimiter {
	rl := &RateLimiter{
		entries: make(map[string]*limiterEntry),
		rpm:     rpm,
		logger:  logger,
	}
	go rl.cleanupLoop()

	logger.Info("Rate limiter initialized", "requests_per_minute", rpm)
	return rl
}

// Allow checks whether one request from identifier may proceed
func (rl *RateLimiter) Allow(identifier string) bool {
	rl.mu.Lock()
	entry, ok := rl.entries[identifier]
	if !ok {
		entry = &limiterEntry{
			bucket: NewTokenBucket(float64(rl.rpm), float64(rl.rpm)/60.0),
		}
		rl.entries[identifier] = entry
	}
	entry.lastAccess = time.Now()
	rl.mu.Unlock()

	return entry.bucket.TryConsume(1)
}

// Middleware returns the gin handler enforcing the limit
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			rl.logger.Warn("Rate limit exceeded", "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				types.NewError("rate limit exceeded", "Too many requests, slow down and retry."))
			return
		}
		c.Next()
	}
}

// cleanupLoop prunes entries idle for more than an hour
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		rl.mu.Lock()
		for id, entry := range rl.entries {
			if entry.lastAccess.Before(cutoff) {
				delete(rl.entries, id)
			}
		}
		rl.mu.Unlock()
	}
}
