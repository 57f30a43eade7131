package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
	"github.com/zfogg/unify/internal/websocket"
	"go.uber.org/zap"
)

// notice is one notification to persist and push
type notice struct {
	Recipient string
	Actor     string
	Type      string
	Title     string
	Content   string
	Link      string
}

// notify stores n and pushes it with the recipient's new unread count.
// Failures are logged; the triggering action has already succeeded.
func (h *Handlers) notify(ctx context.Context, n notice) {
	if n.Recipient == "" || n.Recipient == n.Actor {
		return
	}
	db := h.kernel.DB().WithContext(ctx)
	row := models.Notification{
		UserID:  n.Recipient,
		ActorID: optionalString(n.Actor),
		Type:    n.Type,
		Title:   n.Title,
		Content: n.Content,
		Link:    n.Link,
	}
	if err := db.Create(&row).Error; err != nil {
		logger.ErrorWithFields("Failed to create notification", err,
			logger.WithUserID(n.Recipient), zap.String("type", n.Type))
		return
	}

	pusher := h.kernel.Pusher()
	if pusher == nil {
		return
	}
	pusher.SendToUser(n.Recipient, websocket.NewMessage(websocket.MessageTypeNotification, websocket.NotificationPayload{
		ID:        row.ID,
		Type:      row.Type,
		Title:     row.Title,
		Content:   row.Content,
		Link:      row.Link,
		ActorID:   n.Actor,
		CreatedAt: row.CreatedAt,
	}))

	var unread int64
	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", n.Recipient, false).
		Count(&unread).Error; err != nil {
		logger.WarnWithFields("Failed to count unread notifications", err, logger.WithUserID(n.Recipient))
		return
	}
	pusher.SendToUser(n.Recipient, websocket.NewMessage(websocket.MessageTypeNotificationCount,
		websocket.NotificationCountPayload{UnreadCount: unread}))
}

// push sends a realtime event when websockets are enabled
func (h *Handlers) push(userID, msgType string, payload interface{}) {
	if pusher := h.kernel.Pusher(); pusher != nil {
		pusher.SendToUser(userID, websocket.NewMessage(msgType, payload))
	}
}

// GetNotifications lists the caller's notifications, newest first
// GET /api/notifications?limit&offset&unread
func (h *Handlers) GetNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c, "offset")
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))

	query := h.db(c).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to count notifications", err)
		return
	}

	notifications := []models.Notification{}
	if err := query.Preload("Actor").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&notifications).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch notifications", err)
		return
	}

	unread := total
	if !unreadOnly {
		if err := h.db(c).Model(&models.Notification{}).
			Where("user_id = ? AND is_read = ?", userID, false).
			Count(&unread).Error; err != nil {
			util.RespondInternalError(c, "Failed to count notifications", err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unreadCount":   unread,
		"meta":          pageMeta(limit, offset, len(notifications), total),
	})
}

// MarkNotificationsRead marks the given ids read, or all of them when ids is empty
// POST /api/notifications/read
func (h *Handlers) MarkNotificationsRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		IDs []string `json:"ids"`
	}
	if !bindJSON(c, &req) {
		return
	}

	query := h.db(c).Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false)
	if len(req.IDs) > 0 {
		query = query.Where("id IN ?", req.IDs)
	}
	res := query.Update("is_read", true)
	if res.Error != nil {
		util.RespondInternalError(c, "Failed to update notifications", res.Error)
		return
	}

	var unread int64
	h.db(c).Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&unread)
	h.push(userID, websocket.MessageTypeNotificationCount, websocket.NotificationCountPayload{UnreadCount: unread})

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": res.RowsAffected, "unreadCount": unread})
}

// DeleteNotification removes one of the caller's notifications
// DELETE /api/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	res := h.db(c).Where("id = ? AND user_id = ?", c.Param("id"), userID).Delete(&models.Notification{})
	if res.Error != nil {
		util.RespondInternalError(c, "Failed to delete notification", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		util.RespondNotFound(c, "Notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
