package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/metrics"
	"github.com/zfogg/unify/internal/util"
	"golang.org/x/time/rate"
)

// RateLimitConfig is Limit requests per Window for each key
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	// KeyFunc picks the bucket; defaults to user id, then client IP
	KeyFunc func(c *gin.Context) string
	// Name labels the limiter in metrics and Redis keys
	Name string
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 300, Window: time.Minute, Name: "api"}
}

// AuthRateLimitConfig is stricter for login, register and password reset
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 10, Window: time.Minute, Name: "auth"}
}

func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 20, Window: time.Minute, Name: "upload"}
}

func SearchRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 60, Window: time.Minute, Name: "search"}
}

// TypingRateLimitConfig allows roughly two typing updates per second
func TypingRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 120, Window: time.Minute, Name: "typing"}
}

func defaultKey(c *gin.Context) string {
	if userID := util.OptionalUserID(c); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

func (cfg RateLimitConfig) key(c *gin.Context) string {
	if cfg.KeyFunc != nil {
		return cfg.KeyFunc(c)
	}
	return defaultKey(c)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per key. Buckets refill continuously at
// Limit/Window and hold at most Limit tokens.
type RateLimiter struct {
	config  RateLimitConfig
	mu      sync.Mutex
	entries   map[string]*limiterEntry
	now       func() time.Time
	lastSweep time.Time
}

func newRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.Limit <= 0 {
		config.Limit = 1
	}
	return &RateLimiter{
		config:  config,
		entries:   make(map[string]*limiterEntry),
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

// Allow takes a token for key and reports whether one was available
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.config.Window {
		rl.sweepLocked(now)
	}
	entry, ok := rl.entries[key]
	if !ok {
		every := rate.Every(rl.config.Window / time.Duration(rl.config.Limit))
		entry = &limiterEntry{limiter: rate.NewLimiter(every, rl.config.Limit)}
		rl.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// RetryAfter returns whole seconds until key gets its next token
func (rl *RateLimiter) RetryAfter(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[key]
	if !ok {
		return 0
	}
	now := rl.now()
	tokens := entry.limiter.TokensAt(now)
	if tokens >= 1 {
		return 0
	}
	wait := (1 - tokens) / float64(entry.limiter.Limit())
	return int(math.Ceil(wait))
}

// Sweep drops buckets idle for longer than a window; they would be full anyway
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.sweepLocked(rl.now())
}

func (rl *RateLimiter) sweepLocked(now time.Time) int {
	rl.lastSweep = now
	cutoff := now.Add(-rl.config.Window)
	removed := 0
	for key, entry := range rl.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.entries, key)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

func (rl *RateLimiter) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.config.key(c)
		if rl.Allow(key) {
			c.Next()
			return
		}
		rejectRateLimited(c, rl.config, rl.RetryAfter(key), "memory")
	}
}

// NewRateLimiter returns an in-process limiter middleware
func NewRateLimiter(config RateLimitConfig) gin.HandlerFunc {
	return newRateLimiter(config).handler()
}

func rejectRateLimited(c *gin.Context, cfg RateLimitConfig, retryAfter int, backend string) {
	if retryAfter < 1 {
		retryAfter = 1
	}
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	metrics.Get().RateLimitExceededTotal.WithLabelValues(path, c.Request.Method, backend).Inc()

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
	c.Header("X-RateLimit-Remaining", "0")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       "rate limit exceeded",
		"code":        "RATE_LIMITED",
		"retry_after": retryAfter,
	})
}
