package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/prodapt-cloud/Pioneer-Training/pkg/utils"
)

func testLogger() *utils.Logger {
	return utils.NewLoggerWithConfig(&utils.LoggerConfig{Level: utils.FATAL})
}

func TestTokenBucket_ConsumesUpToCapacity(t *testing.T) {
	tb := NewTokenBucket(3, 0)

	assert.True(t, tb.TryConsume(1))
	assert.True(t, tb.TryConsume(1))
	assert.True(t, tb.TryConsume(1))
	assert.False(t, tb.TryConsume(1))
}

func TestTokenBucket_Refills(t *testing.T) {
	tb := NewTokenBucket(1, 1000)

	assert.True(t, tb.TryConsume(1))

	// At 1000 tokens/sec the bucket is full again almost immediately,
	// but never above capacity.
	assert.Eventually(t, func() bool { return tb.TryConsume(1) },
		time.Second, time.Millisecond)
	tb.mu.Lock()
	capped := tb.tokens <= tb.capacity
	tb.mu.Unlock()
	assert.True(t, capped)
}

func TestRateLimiter_PerClientIsolation(t *testing.T) {
	rl := NewRateLimiter(2, testLogger())

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	// A different client has its own bucket.
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(1, testLogger())

	engine := gin.New()
	engine.Use(rl.Middleware())
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	engine.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	engine.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "rate limit exceeded")
}
