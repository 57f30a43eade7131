package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// Health reports database and Redis reachability. Redis is optional, so
// only a database failure makes the service unhealthy.
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := "healthy"
	code := http.StatusOK

	dbStatus := "ok"
	if sqlDB, err := h.kernel.DB().DB(); err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	redisStatus := "disabled"
	if client := h.kernel.Cache(); client != nil {
		redisStatus = "ok"
		if err := client.Ping(ctx); err != nil {
			redisStatus = "error: " + err.Error()
			if status == "healthy" {
				status = "degraded"
			}
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"service":   "unify-backend",
		"database":  dbStatus,
		"redis":     redisStatus,
	})
}
