package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
	"gorm.io/gorm"
)

const maxCommentLength = 2000

// commentContent reads and validates {content}
func commentContent(c *gin.Context) (string, bool) {
	var req struct {
		Content string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return "", false
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		util.RespondValidationError(c, "content", "Comment content is required")
		return "", false
	}
	if len([]rune(content)) > maxCommentLength {
		util.RespondValidationError(c, "content", "Comment must be at most 2000 characters")
		return "", false
	}
	return content, true
}

// loadComment answers 404 unless :commentId exists on :postId
func (h *Handlers) loadComment(c *gin.Context) (*models.Comment, bool) {
	var comment models.Comment
	err := h.db(c).Preload("User").
		Where("id = ? AND post_id = ?", c.Param("commentId"), c.Param("postId")).
		First(&comment).Error
	if err != nil {
		util.HandleDBError(c, err, "Comment")
		return nil, false
	}
	return &comment, true
}

// GetComments lists top-level comments, oldest first, with reply counts
// GET /api/posts/:postId/comments
func (h *Handlers) GetComments(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c, "offset")

	query := h.db(c).Model(&models.Comment{}).Where("post_id = ? AND parent_id IS NULL", post.ID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch comments", err)
		return
	}
	comments := []models.Comment{}
	if err := query.Preload("User").
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&comments).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch comments", err)
		return
	}

	replyCounts := map[string]int64{}
	if len(comments) > 0 {
		ids := make([]string, len(comments))
		for i, cm := range comments {
			ids[i] = cm.ID
		}
		var rows []struct {
			ParentID string
			N        int64
		}
		if err := h.db(c).Model(&models.Comment{}).
			Select("parent_id, COUNT(*) AS n").
			Where("parent_id IN ?", ids).
			Group("parent_id").
			Scan(&rows).Error; err != nil {
			util.RespondInternalError(c, "Failed to fetch comments", err)
			return
		}
		for _, r := range rows {
			replyCounts[r.ParentID] = r.N
		}
	}

	items := make([]gin.H, 0, len(comments))
	for _, cm := range comments {
		items = append(items, gin.H{"comment": cm, "replyCount": replyCounts[cm.ID]})
	}
	c.JSON(http.StatusOK, gin.H{"comments": items, "meta": pageMeta(limit, offset, len(items), total)})
}

// CreateComment POST /api/posts/:postId/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	content, ok := commentContent(c)
	if !ok {
		return
	}

	comment := models.Comment{PostID: post.ID, UserID: user.ID, Content: content}
	if !h.insertComment(c, &comment) {
		return
	}
	comment.User = user

	h.notify(c.Request.Context(), notice{
		Recipient: post.UserID,
		Actor:     user.ID,
		Type:      models.NotificationPostComment,
		Title:     "New comment",
		Content:   displayName(user) + " commented on your post",
		Link:      "/posts/" + post.ID,
	})
	c.JSON(http.StatusCreated, comment)
}

// insertComment creates the comment and bumps the post's counter
func (h *Handlers) insertComment(c *gin.Context, comment *models.Comment) bool {
	err := h.db(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		util.RespondInternalError(c, "Failed to create comment", err)
		return false
	}
	return true
}

// GetComment GET /api/posts/:postId/comments/:commentId
func (h *Handlers) GetComment(c *gin.Context) {
	comment, ok := h.loadComment(c)
	if !ok {
		return
	}
	var replies int64
	h.db(c).Model(&models.Comment{}).Where("parent_id = ?", comment.ID).Count(&replies)
	c.JSON(http.StatusOK, gin.H{"comment": comment, "replyCount": replies})
}

// UpdateComment edits the caller's own comment
// PUT /api/posts/:postId/comments/:commentId
func (h *Handlers) UpdateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	comment, ok := h.loadComment(c)
	if !ok {
		return
	}
	if comment.UserID != userID {
		util.RespondForbidden(c, "You do not own this comment")
		return
	}
	content, ok := commentContent(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	if err := h.db(c).Model(comment).Updates(map[string]interface{}{
		"content":   content,
		"is_edited": true,
		"edited_at": now,
	}).Error; err != nil {
		util.RespondInternalError(c, "Failed to update comment", err)
		return
	}
	comment.Content, comment.IsEdited, comment.EditedAt = content, true, &now
	c.JSON(http.StatusOK, comment)
}

// DeleteComment removes the comment, its replies and their reactions
// DELETE /api/posts/:postId/comments/:commentId
func (h *Handlers) DeleteComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	comment, ok := h.loadComment(c)
	if !ok {
		return
	}
	if comment.UserID != userID {
		util.RespondForbidden(c, "You do not own this comment")
		return
	}

	err := h.db(c).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.Comment{}).Where("parent_id = ?", comment.ID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		ids = append(ids, comment.ID)
		if err := tx.Where("comment_id IN ?", ids).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("parent_id = ?", comment.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("CASE WHEN comment_count >= ? THEN comment_count - ? ELSE 0 END", len(ids), len(ids))).Error
	})
	if err != nil {
		util.RespondInternalError(c, "Failed to delete comment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

// GetCommentReplies lists replies oldest first
// GET /api/posts/:postId/comments/:commentId/replies
func (h *Handlers) GetCommentReplies(c *gin.Context) {
	comment, ok := h.loadComment(c)
	if !ok {
		return
	}
	replies := []models.Comment{}
	if err := h.db(c).Preload("User").
		Where("parent_id = ?", comment.ID).
		Order("created_at ASC").
		Find(&replies).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch replies", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies, "total": len(replies)})
}

// CreateCommentReply POST /api/posts/:postId/comments/:commentId/replies
func (h *Handlers) CreateCommentReply(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	parent, ok := h.loadComment(c)
	if !ok {
		return
	}
	content, ok := commentContent(c)
	if !ok {
		return
	}

	parentID := parent.ID
	reply := models.Comment{PostID: parent.PostID, UserID: user.ID, ParentID: &parentID, Content: content}
	if !h.insertComment(c, &reply) {
		return
	}
	reply.User = user

	h.notify(c.Request.Context(), notice{
		Recipient: parent.UserID,
		Actor:     user.ID,
		Type:      models.NotificationCommentReply,
		Title:     "New reply",
		Content:   displayName(user) + " replied to your comment",
		Link:      "/posts/" + parent.PostID,
	})
	c.JSON(http.StatusCreated, reply)
}
