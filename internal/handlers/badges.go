package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
	"gorm.io/gorm"
)

// badgeCounters are the queries behind each /api/badges endpoint
var badgeCounters = map[string]func(db *gorm.DB, userID string) *gorm.DB{
	"friends": func(db *gorm.DB, userID string) *gorm.DB {
		return db.Model(&models.Friendship{}).Where("user2_id = ? AND status = ?", userID, models.FriendshipPending)
	},
	"groups": func(db *gorm.DB, userID string) *gorm.DB {
		return db.Model(&models.GroupMember{}).Where("user_id = ? AND joined_at IS NULL", userID)
	},
	"notifications": func(db *gorm.DB, userID string) *gorm.DB {
		return db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false)
	},
	"messages": func(db *gorm.DB, userID string) *gorm.DB {
		return db.Model(&models.Message{}).Where("receiver_id = ? AND is_read = ?", userID, false)
	},
}

func (h *Handlers) countBadge(c *gin.Context, name, userID string) (int64, error) {
	var n int64
	err := badgeCounters[name](h.db(c), userID).Count(&n).Error
	return n, err
}

// badge serves GET /api/badges/{name}
func (h *Handlers) badge(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := util.GetUserIDFromContext(c)
		if !ok {
			return
		}
		count, err := h.countBadge(c, name, userID)
		if err != nil {
			util.RespondInternalError(c, "Failed to count "+name, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": count})
	}
}

func (h *Handlers) GetFriendsBadge(c *gin.Context)       { h.badge("friends")(c) }
func (h *Handlers) GetGroupsBadge(c *gin.Context)        { h.badge("groups")(c) }
func (h *Handlers) GetNotificationsBadge(c *gin.Context) { h.badge("notifications")(c) }
func (h *Handlers) GetMessagesBadge(c *gin.Context)      { h.badge("messages")(c) }

// GetBadgeDiagnostics dumps every counter and the caller's friendship rows.
// Mounted outside production only.
// GET /api/test/badges
func (h *Handlers) GetBadgeDiagnostics(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	counts := gin.H{}
	for name := range badgeCounters {
		n, err := h.countBadge(c, name, user.ID)
		if err != nil {
			util.RespondInternalError(c, "Failed to count "+name, err)
			return
		}
		counts[name] = n
	}

	var friendships []models.Friendship
	if err := h.db(c).
		Where("user1_id = ? OR user2_id = ?", user.ID, user.ID).
		Order("created_at DESC").
		Find(&friendships).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch friendships", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        user.Summary(),
		"counts":      counts,
		"friendships": friendships,
	})
}
