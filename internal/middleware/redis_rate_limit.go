package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/cache"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/util"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware is a fixed-window limiter shared by every API
// instance. Without Redis it degrades to the in-process token bucket.
func RedisRateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.Name == "" {
		config.Name = "api"
	}
	fallback := newRateLimiter(config)

	return func(c *gin.Context) {
		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			fallback.handler()(c)
			return
		}

		key := fmt.Sprintf("rate_limit:%s:%s", config.Name, config.key(c))
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, ttl, err := redisClient.IncrWindow(ctx, key, config.Window)
		if err != nil {
			logger.Log.Error("Rate limit check failed",
				zap.String("key", key),
				zap.Error(err),
			)
			util.RespondServiceUnavailable(c, "rate limiter")
			return
		}

		remaining := config.Limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > int64(config.Limit) {
			logger.Log.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.Int("max_requests", config.Limit),
				zap.Int64("current_requests", count),
			)
			rejectRateLimited(c, config, int(math.Ceil(ttl.Seconds())), "redis")
			return
		}

		c.Next()
	}
}
