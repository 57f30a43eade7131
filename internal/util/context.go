package util

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/models"
)

const (
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"
)

// GetUserFromContext returns the authenticated user. When there is none it
// has already answered 401 and returns false.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		RespondUnauthorized(c)
		return nil, false
	}
	user, ok := value.(*models.User)
	if !ok || user == nil {
		RespondInternalError(c, "invalid user data in context")
		return nil, false
	}
	return user, true
}

// GetUserIDFromContext is GetUserFromContext for callers that only need the id
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextUserIDKey)
	if !exists {
		RespondUnauthorized(c)
		return "", false
	}
	id, ok := value.(string)
	if !ok || id == "" {
		RespondUnauthorized(c)
		return "", false
	}
	return id, true
}

// OptionalUserID reads the user id without responding when it is absent
func OptionalUserID(c *gin.Context) string {
	if id, ok := c.Get(ContextUserIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// SetUser stores the authenticated user the way the auth middleware does
func SetUser(c *gin.Context, user *models.User) {
	c.Set(ContextUserKey, user)
	c.Set(ContextUserIDKey, user.ID)
}
