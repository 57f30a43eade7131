package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
	"gorm.io/gorm"
)

const maxEmojiLength = 16

// ReactionGroup is every reaction with one emoji
type ReactionGroup struct {
	Emoji string               `json:"emoji"`
	Count int                  `json:"count"`
	Users []models.UserSummary `json:"users"`
}

// groupReactions buckets reactions by emoji, most used first
func groupReactions(reactions []models.Reaction) []ReactionGroup {
	index := map[string]int{}
	groups := []ReactionGroup{}
	for _, r := range reactions {
		i, ok := index[r.Emoji]
		if !ok {
			i = len(groups)
			index[r.Emoji] = i
			groups = append(groups, ReactionGroup{Emoji: r.Emoji, Users: []models.UserSummary{}})
		}
		groups[i].Count++
		if r.User != nil {
			groups[i].Users = append(groups[i].Users, r.User.Summary())
		}
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Count > groups[b].Count })
	return groups
}

// readEmoji validates {emoji}
func readEmoji(c *gin.Context) (string, bool) {
	var req struct {
		Emoji string `json:"emoji"`
	}
	if !bindJSON(c, &req) {
		return "", false
	}
	emoji := strings.TrimSpace(req.Emoji)
	if emoji == "" || utf8.RuneCountInString(emoji) > maxEmojiLength {
		util.RespondValidationError(c, "emoji", "A single emoji is required")
		return "", false
	}
	return emoji, true
}

// GetCommentReactions GET /api/posts/:postId/comments/:commentId/reactions
func (h *Handlers) GetCommentReactions(c *gin.Context) {
	comment, ok := h.loadComment(c)
	if !ok {
		return
	}
	reactions := []models.Reaction{}
	if err := h.db(c).Preload("User").
		Where("comment_id = ?", comment.ID).
		Order("created_at ASC").
		Find(&reactions).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch reactions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":        len(reactions),
		"reactions":    groupReactions(reactions),
		"allReactions": reactions,
	})
}

// ToggleCommentReaction adds the emoji, or removes it when already present
// POST /api/posts/:postId/comments/:commentId/reactions
func (h *Handlers) ToggleCommentReaction(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	comment, ok := h.loadComment(c)
	if !ok {
		return
	}
	emoji, ok := readEmoji(c)
	if !ok {
		return
	}

	var existing models.Reaction
	err := h.db(c).Where("user_id = ? AND comment_id = ? AND emoji = ?", user.ID, comment.ID, emoji).First(&existing).Error
	if err == nil {
		if err := h.db(c).Delete(&existing).Error; err != nil {
			util.RespondInternalError(c, "Failed to remove reaction", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Reaction removed", "action": "removed"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		util.RespondInternalError(c, "Failed to toggle reaction", err)
		return
	}

	commentID := comment.ID
	reaction := models.Reaction{UserID: user.ID, Emoji: emoji, CommentID: &commentID}
	if err := h.db(c).Create(&reaction).Error; err != nil {
		util.RespondInternalError(c, "Failed to add reaction", err)
		return
	}
	reaction.User = user

	h.notify(c.Request.Context(), notice{
		Recipient: comment.UserID,
		Actor:     user.ID,
		Type:      models.NotificationCommentReaction,
		Title:     "New reaction",
		Content:   displayName(user) + " reacted " + emoji + " to your comment",
		Link:      "/posts/" + comment.PostID,
	})
	c.JSON(http.StatusCreated, gin.H{"message": "Reaction added", "action": "added", "reaction": reaction})
}

// DeleteCommentReaction DELETE /api/posts/:postId/comments/:commentId/reactions?emoji=
func (h *Handlers) DeleteCommentReaction(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	comment, ok := h.loadComment(c)
	if !ok {
		return
	}
	emoji := strings.TrimSpace(c.Query("emoji"))
	if emoji == "" {
		util.RespondValidationError(c, "emoji", "emoji is required")
		return
	}
	res := h.db(c).Where("user_id = ? AND comment_id = ? AND emoji = ?", userID, comment.ID, emoji).Delete(&models.Reaction{})
	if res.Error != nil {
		util.RespondInternalError(c, "Failed to remove reaction", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		util.RespondNotFound(c, "Reaction")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reaction removed"})
}
