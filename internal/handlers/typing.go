package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/util"
)

// UpdateTyping records whether the caller is typing to a partner and reports
// whether that partner is typing back
// POST /api/messages/typing
func (h *Handlers) UpdateTyping(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		ConversationPartnerID string `json:"conversationPartnerId"`
		IsTyping              bool   `json:"isTyping"`
	}
	if !bindJSON(c, &req) {
		return
	}
	partnerID := strings.TrimSpace(req.ConversationPartnerID)
	if partnerID == "" {
		util.RespondValidationError(c, "conversationPartnerId", "conversationPartnerId is required")
		return
	}

	partnerTyping, err := h.kernel.Typing().Update(c.Request.Context(), userID, partnerID, req.IsTyping)
	if err != nil {
		util.RespondInternalError(c, "Failed to update typing status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isPartnerTyping": partnerTyping})
}

// GetTyping GET /api/messages/typing?partnerId=
func (h *Handlers) GetTyping(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	partnerID := strings.TrimSpace(c.Query("partnerId"))
	if partnerID == "" {
		util.RespondValidationError(c, "partnerId", "partnerId is required")
		return
	}
	partnerTyping, err := h.kernel.Typing().PartnerTyping(c.Request.Context(), userID, partnerID)
	if err != nil {
		util.RespondInternalError(c, "Failed to read typing status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isPartnerTyping": partnerTyping})
}
