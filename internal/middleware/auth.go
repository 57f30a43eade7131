package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/auth"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/util"
)

// bearerToken pulls the token from the Authorization header, falling back to
// the token query parameter used by websocket clients
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

// AuthMiddleware requires a valid JWT and stores the user in the context
func AuthMiddleware(authService auth.ServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "Authorization required")
			return
		}
		user, err := authService.ValidateToken(token)
		if err != nil {
			logger.Log.Debug("Rejected token", logger.WithIP(c.ClientIP()))
			util.RespondUnauthorized(c, "Invalid or expired token")
			return
		}
		util.SetUser(c, user)
		c.Next()
	}
}

// OptionalAuthMiddleware sets the user when a valid token is present and
// otherwise lets the request through anonymously
func OptionalAuthMiddleware(authService auth.ServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := authService.ValidateToken(token); err == nil {
				util.SetUser(c, user)
			}
		}
		c.Next()
	}
}

// NonProduction hides diagnostic routes in production
func NonProduction(environment string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if environment == "production" {
			util.RespondNotFound(c, "route")
			return
		}
		c.Next()
	}
}
