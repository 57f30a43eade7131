package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/zfogg/unify/internal/cache"
)

func newLimitedRouter(config RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewRateLimiter(config))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func doGet(router http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	router := newLimitedRouter(RateLimitConfig{Limit: 3, Window: time.Second})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doGet(router, "").Code, "request %d should succeed", i+1)
	}

	w := doGet(router, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	// one token refills every Window/Limit
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, http.StatusOK, doGet(router, "").Code)
}

func TestRateLimiterDifferentClients(t *testing.T) {
	router := newLimitedRouter(RateLimitConfig{Limit: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doGet(router, "10.0.0.1:1234").Code)
		assert.Equal(t, http.StatusOK, doGet(router, "10.0.0.2:1234").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, doGet(router, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(router, "10.0.0.2:1234").Code)
}

func TestRateLimiterKeysByUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", c.GetHeader("X-User-ID"))
		c.Next()
	})
	router.Use(NewRateLimiter(RateLimitConfig{Limit: 1, Window: time.Minute}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-User-ID", user)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send("alice"))
	assert.Equal(t, http.StatusOK, send("bob"))
	assert.Equal(t, http.StatusTooManyRequests, send("alice"))
}

func TestRateLimiterSweep(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Limit: 5, Window: time.Minute})
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.Allow("b")
	assert.Equal(t, 2, rl.size())

	now = now.Add(2 * time.Minute)
	rl.Allow("b")
	assert.Equal(t, 1, rl.size(), "idle bucket should be swept lazily")
	assert.Equal(t, 0, rl.Sweep())
}

func TestRetryAfter(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Limit: 1, Window: 10 * time.Second})
	now := time.Now()
	rl.now = func() time.Time { return now }

	assert.Equal(t, 0, rl.RetryAfter("x"))
	assert.True(t, rl.Allow("x"))
	assert.False(t, rl.Allow("x"))
	assert.Equal(t, 10, rl.RetryAfter("x"))
}

func TestRedisRateLimitFallsBackWithoutRedis(t *testing.T) {
	if cache.GetRedisClient() != nil {
		t.Skip("global redis client configured")
	}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RedisRateLimitMiddleware(RateLimitConfig{Limit: 1, Window: time.Minute, Name: "test"}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, doGet(router, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(router, "").Code)
}
