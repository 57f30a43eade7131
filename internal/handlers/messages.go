package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
	"github.com/zfogg/unify/internal/websocket"
)

const (
	maxMessageLength = 5000
	maxConversations = 50
)

// Conversation is the latest message exchanged with one partner
type Conversation struct {
	Partner     models.UserSummary `json:"partner"`
	LastMessage models.Message     `json:"lastMessage"`
	UnreadCount int64              `json:"unreadCount"`
}

// GetConversations lists one entry per partner, most recent first, for the
// maxConversations most recently active partners
// GET /api/messages/conversations
func (h *Handlers) GetConversations(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var rows []struct {
		PartnerID string
		Unread    int64
	}
	if err := h.db(c).Model(&models.Message{}).
		Select("CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS partner_id, "+
			"SUM(CASE WHEN receiver_id = ? AND is_read = ? THEN 1 ELSE 0 END) AS unread", userID, userID, false).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Group("partner_id").
		Order("MAX(created_at) DESC").
		Limit(maxConversations).
		Scan(&rows).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch conversations", err)
		return
	}

	latest := make(map[string]models.Message, len(rows))
	unread := make(map[string]int64, len(rows))
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		var m models.Message
		if err := h.db(c).
			Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userID, row.PartnerID, row.PartnerID, userID).
			Order("created_at DESC").
			First(&m).Error; err != nil {
			util.RespondInternalError(c, "Failed to fetch conversations", err)
			return
		}
		latest[row.PartnerID] = m
		unread[row.PartnerID] = row.Unread
		order = append(order, row.PartnerID)
	}

	var partners []models.User
	if len(order) > 0 {
		if err := h.db(c).Where("id IN ?", order).Find(&partners).Error; err != nil {
			util.RespondInternalError(c, "Failed to fetch conversations", err)
			return
		}
	}
	byID := make(map[string]models.User, len(partners))
	for _, p := range partners {
		byID[p.ID] = p
	}

	conversations := make([]Conversation, 0, len(order))
	for _, id := range order {
		partner, found := byID[id]
		if !found {
			continue
		}
		conversations = append(conversations, Conversation{
			Partner:     partner.Summary(),
			LastMessage: latest[id],
			UnreadCount: unread[id],
		})
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// GetMessages returns the conversation with ?userId oldest first and marks
// the partner's messages read
// GET /api/messages?userId=&limit&offset
func (h *Handlers) GetMessages(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	partnerID := c.Query("userId")
	if partnerID == "" {
		util.RespondValidationError(c, "userId", "userId is required")
		return
	}
	limit, offset := util.Pagination(c, "offset")

	pair := h.db(c).Model(&models.Message{}).Where(
		"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userID, partnerID, partnerID, userID)

	var total int64
	if err := pair.Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch messages", err)
		return
	}

	// newest page, returned in chronological order
	messages := []models.Message{}
	if err := pair.Order("created_at DESC").Limit(limit).Offset(offset).Find(&messages).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch messages", err)
		return
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	if _, err := h.markConversationRead(c, userID, partnerID); err != nil {
		logger.WarnWithFields("Failed to mark messages read", err, logger.WithUserID(userID))
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"meta":     pageMeta(limit, offset, len(messages), total),
	})
}

func (h *Handlers) markConversationRead(c *gin.Context, userID, partnerID string) (int64, error) {
	now := time.Now().UTC()
	res := h.db(c).Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", partnerID, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	return res.RowsAffected, res.Error
}

// SendMessage POST /api/messages (and /api/messages/send)
func (h *Handlers) SendMessage(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req struct {
		ReceiverID string `json:"receiverId"`
		Content    string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if req.ReceiverID == "" {
		util.RespondValidationError(c, "receiverId", "receiverId is required")
		return
	}
	if content == "" {
		util.RespondValidationError(c, "content", "Message content is required")
		return
	}
	if len(content) > maxMessageLength {
		util.RespondValidationError(c, "content", "Message is too long")
		return
	}
	if req.ReceiverID == user.ID {
		util.RespondBadRequest(c, "Cannot send a message to yourself")
		return
	}

	receiver, ok := h.loadUser(c, req.ReceiverID)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	blocked, err := h.kernel.Friends().IsBlocked(ctx, user.ID, receiver.ID)
	if err != nil {
		util.RespondInternalError(c, "Failed to check relationship", err)
		return
	}
	if blocked {
		util.RespondForbidden(c, "You cannot message this user")
		return
	}

	message := models.Message{SenderID: user.ID, ReceiverID: receiver.ID, Content: content}
	if err := h.db(c).Create(&message).Error; err != nil {
		util.RespondInternalError(c, "Failed to send message", err)
		return
	}
	message.Sender = user

	if err := h.kernel.Typing().Clear(ctx, user.ID, receiver.ID); err != nil {
		logger.WarnWithFields("Failed to clear typing state", err, logger.WithUserID(user.ID))
	}
	h.push(receiver.ID, websocket.MessageTypeNewMessage, websocket.NewMessagePayload{
		ID:         message.ID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		Content:    message.Content,
		CreatedAt:  message.CreatedAt,
		Sender:     user.Summary(),
	})

	c.JSON(http.StatusCreated, message)
}

// MarkMessagesRead POST /api/messages/read {userId}
func (h *Handlers) MarkMessagesRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		UserID string `json:"userId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.UserID == "" {
		util.RespondValidationError(c, "userId", "userId is required")
		return
	}
	updated, err := h.markConversationRead(c, userID, req.UserID)
	if err != nil {
		util.RespondInternalError(c, "Failed to mark messages read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}
