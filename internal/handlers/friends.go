package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/friends"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
	"github.com/zfogg/unify/internal/websocket"
)

// respondFriendsError maps friends service errors to HTTP answers
func respondFriendsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, friends.ErrSelfRequest):
		util.RespondBadRequest(c, err.Error())
	case errors.Is(err, friends.ErrInvalidStatus):
		util.RespondValidationError(c, "status", "status must be accepted, declined or blocked")
	case errors.Is(err, friends.ErrUserNotFound):
		util.RespondNotFound(c, "User")
	case errors.Is(err, friends.ErrNotFound):
		util.RespondNotFound(c, "Friendship")
	case errors.Is(err, friends.ErrAlreadyExists), errors.Is(err, friends.ErrNotPending):
		util.RespondConflict(c, err.Error())
	case errors.Is(err, friends.ErrBlocked), errors.Is(err, friends.ErrNotAllowed):
		util.RespondForbidden(c, err.Error())
	default:
		util.RespondInternalError(c, "Friendship operation failed", err)
	}
}

// GetFriendsList returns accepted friends, most recent first
// GET /api/friends/list?limit&offset&search
func (h *Handlers) GetFriendsList(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c, "offset")
	list, err := h.kernel.Friends().ListFriends(c.Request.Context(), userID, c.Query("search"), limit, offset)
	if err != nil {
		util.RespondInternalError(c, "Failed to fetch friends", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetFriendSuggestions ranks friends of friends by mutual friend count
// GET /api/friends/suggestions?limit&offset
func (h *Handlers) GetFriendSuggestions(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c, "offset")
	page, err := h.kernel.Friends().Suggestions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		util.RespondInternalError(c, "Failed to compute suggestions", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetFriendBadges GET /api/friends/badges
func (h *Handlers) GetFriendBadges(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	badges, err := h.kernel.Friends().Badges(c.Request.Context(), userID)
	if err != nil {
		util.RespondInternalError(c, "Failed to count friend badges", err)
		return
	}
	c.JSON(http.StatusOK, badges)
}

// GetFriendsOverview returns friends plus pending requests in both directions
// GET /api/friends
func (h *Handlers) GetFriendsOverview(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	svc := h.kernel.Friends()

	list, err := svc.ListFriends(ctx, userID, "", util.MaxPageLimit, 0)
	if err != nil {
		util.RespondInternalError(c, "Failed to fetch friends", err)
		return
	}
	received, err := svc.PendingReceived(ctx, userID)
	if err != nil {
		util.RespondInternalError(c, "Failed to fetch friend requests", err)
		return
	}
	sent, err := svc.PendingSent(ctx, userID)
	if err != nil {
		util.RespondInternalError(c, "Failed to fetch friend requests", err)
		return
	}

	if received == nil {
		received = []models.Friendship{}
	}
	if sent == nil {
		sent = []models.Friendship{}
	}
	c.JSON(http.StatusOK, gin.H{
		"friends":         list.Friends,
		"pendingReceived": received,
		"pendingSent":     sent,
	})
}

// SendFriendRequest POST /api/friends/request (and /api/friends/add)
func (h *Handlers) SendFriendRequest(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req struct {
		UserID string `json:"userId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	target := strings.TrimSpace(req.UserID)
	if target == "" {
		util.RespondValidationError(c, "userId", "userId is required")
		return
	}

	friendship, err := h.kernel.Friends().SendRequest(c.Request.Context(), user.ID, target)
	if err != nil {
		respondFriendsError(c, err)
		return
	}

	h.notify(c.Request.Context(), notice{
		Recipient: target,
		Actor:     user.ID,
		Type:      models.NotificationFriendRequest,
		Title:     "New friend request",
		Content:   displayName(user) + " sent you a friend request",
		Link:      "/friends",
	})
	h.push(target, websocket.MessageTypeFriendRequest, friendEvent(friendship.ID, user))
	h.emailFriendRequest(c.Request.Context(), user, target)

	c.JSON(http.StatusCreated, friendship)
}

func (h *Handlers) emailFriendRequest(ctx context.Context, from *models.User, targetID string) {
	mailer := h.kernel.Mailer()
	if mailer == nil {
		return
	}
	var to models.User
	if err := h.kernel.DB().WithContext(ctx).First(&to, "id = ?", targetID).Error; err != nil {
		return
	}
	if err := mailer.SendFriendRequestEmail(ctx, to.Email, displayName(&to), displayName(from), from.Username); err != nil {
		logger.WarnWithFields("Failed to send friend request email", err, logger.WithUserID(from.ID), logger.WithTargetUserID(to.ID))
	}
}

// RespondToFriendRequest accepts, declines or blocks
// PATCH /api/friends
func (h *Handlers) RespondToFriendRequest(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req struct {
		FriendshipID string `json:"friendshipId"`
		Status       string `json:"status"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.FriendshipID == "" {
		util.RespondValidationError(c, "friendshipId", "friendshipId is required")
		return
	}

	friendship, err := h.kernel.Friends().Respond(c.Request.Context(), user.ID, req.FriendshipID, req.Status)
	if err != nil {
		respondFriendsError(c, err)
		return
	}

	if friendship.Status == models.FriendshipAccepted {
		requester := friendship.User1ID
		h.notify(c.Request.Context(), notice{
			Recipient: requester,
			Actor:     user.ID,
			Type:      models.NotificationFriendAccepted,
			Title:     "Friend request accepted",
			Content:   displayName(user) + " accepted your friend request",
			Link:      "/profile/" + user.ID,
		})
		h.push(requester, websocket.MessageTypeFriendAccepted, friendEvent(friendship.ID, user))
	}

	c.JSON(http.StatusOK, friendship)
}

// CancelFriendRequest withdraws the caller's pending request
// POST /api/friends/request/cancel
func (h *Handlers) CancelFriendRequest(c *gin.Context) {
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
	if err := h.kernel.Friends().CancelRequest(c.Request.Context(), userID, req.UserID); err != nil {
		respondFriendsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemoveFriend DELETE /api/friends?friendshipId=
func (h *Handlers) RemoveFriend(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	friendshipID := c.Query("friendshipId")
	if friendshipID == "" {
		util.RespondValidationError(c, "friendshipId", "friendshipId is required")
		return
	}
	if err := h.kernel.Friends().Remove(c.Request.Context(), userID, friendshipID); err != nil {
		respondFriendsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func friendEvent(friendshipID string, actor *models.User) websocket.FriendEventPayload {
	return websocket.FriendEventPayload{
		FriendshipID: friendshipID,
		UserID:       actor.ID,
		Username:     actor.Username,
		FullName:     actor.FullName,
		Avatar:       actor.Avatar,
	}
}

func displayName(u *models.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
