package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
	"gorm.io/gorm"
)

const (
	maxPostLength   = 5000
	maxPostImages   = 10
	postLikeMessage = " liked your post"
)

// friendIDs returns the user's accepted friends
func (h *Handlers) friendIDs(c *gin.Context, userID string) ([]string, error) {
	var rows []models.Friendship
	if err := h.db(c).
		Where("(user1_id = ? OR user2_id = ?) AND status = ?", userID, userID, models.FriendshipAccepted).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, f := range rows {
		ids = append(ids, f.Other(userID))
	}
	return ids, nil
}

// GetFeed returns the caller's posts and their friends' posts, newest first
// GET /api/posts?limit&offset
func (h *Handlers) GetFeed(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c, "offset")

	authors, err := h.friendIDs(c, userID)
	if err != nil {
		util.RespondInternalError(c, "Failed to load feed", err)
		return
	}
	authors = append(authors, userID)

	query := h.db(c).Model(&models.Post{}).Where("user_id IN ?", authors)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to load feed", err)
		return
	}
	posts := []models.Post{}
	if err := query.Preload("User").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error; err != nil {
		util.RespondInternalError(c, "Failed to load feed", err)
		return
	}

	liked, err := h.likedSet(c, userID, posts)
	if err != nil {
		util.RespondInternalError(c, "Failed to load feed", err)
		return
	}
	items := make([]gin.H, 0, len(posts))
	for _, p := range posts {
		items = append(items, gin.H{"post": p, "isLiked": liked[p.ID]})
	}
	c.JSON(http.StatusOK, gin.H{"posts": items, "meta": pageMeta(limit, offset, len(items), total)})
}

func (h *Handlers) likedSet(c *gin.Context, userID string, posts []models.Post) (map[string]bool, error) {
	out := map[string]bool{}
	if len(posts) == 0 {
		return out, nil
	}
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	var likes []models.PostLike
	if err := h.db(c).Where("user_id = ? AND post_id IN ?", userID, ids).Find(&likes).Error; err != nil {
		return nil, err
	}
	for _, l := range likes {
		out[l.PostID] = true
	}
	return out, nil
}

// CreatePost POST /api/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Content   string   `json:"content"`
		ImageURLs []string `json:"imageUrls"`
		VideoURL  string   `json:"videoUrl"`
		GroupID   string   `json:"groupId"`
		PageID    string   `json:"pageId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.ImageURLs) == 0 && req.VideoURL == "" {
		util.RespondValidationError(c, "content", "A post needs content, images or a video")
		return
	}
	if len(content) > maxPostLength {
		util.RespondValidationError(c, "content", "Post is too long")
		return
	}
	if len(req.ImageURLs) > maxPostImages {
		util.RespondValidationError(c, "imageUrls", "Too many images")
		return
	}

	if req.GroupID != "" {
		var n int64
		h.db(c).Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ? AND joined_at IS NOT NULL", req.GroupID, userID).
			Count(&n)
		if n == 0 {
			util.RespondForbidden(c, "You are not a member of this group")
			return
		}
	}
	if req.PageID != "" {
		var n int64
		h.db(c).Model(&models.PageMember{}).
			Where("page_id = ? AND user_id = ? AND role = ?", req.PageID, userID, models.PageRoleOwner).
			Count(&n)
		if n == 0 {
			util.RespondForbidden(c, "Only the page owner can post on this page")
			return
		}
	}

	images := req.ImageURLs
	if images == nil {
		images = []string{}
	}
	post := models.Post{
		UserID:    userID,
		Content:   content,
		ImageURLs: images,
		VideoURL:  req.VideoURL,
		GroupID:   optionalString(req.GroupID),
		PageID:    optionalString(req.PageID),
	}
	if err := h.db(c).Create(&post).Error; err != nil {
		util.RespondInternalError(c, "Failed to create post", err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// loadPost answers 404 for unknown ids
func (h *Handlers) loadPost(c *gin.Context) (*models.Post, bool) {
	var post models.Post
	if err := h.db(c).Preload("User").First(&post, "id = ?", c.Param("postId")).Error; err != nil {
		util.HandleDBError(c, err, "Post")
		return nil, false
	}
	return &post, true
}

// GetPost GET /api/posts/:postId
func (h *Handlers) GetPost(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	isLiked := false
	if viewer := util.OptionalUserID(c); viewer != "" {
		liked, err := h.likedSet(c, viewer, []models.Post{*post})
		if err == nil {
			isLiked = liked[post.ID]
		}
	}
	c.JSON(http.StatusOK, gin.H{"post": post, "isLiked": isLiked})
}

// DeletePost removes a post with its likes, comments and reactions
// DELETE /api/posts/:postId
func (h *Handlers) DeletePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	if post.UserID != userID {
		util.RespondForbidden(c, "You can only delete your own posts")
		return
	}

	err := h.db(c).Transaction(func(tx *gorm.DB) error {
		var commentIDs []string
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", post.ID).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("comment_id IN ?", commentIDs).Delete(&models.Reaction{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
	if err != nil {
		util.RespondInternalError(c, "Failed to delete post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// TogglePostLike likes the post, or unlikes it when already liked
// POST /api/posts/:postId/likes
func (h *Handlers) TogglePostLike(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	post, ok := h.loadPost(c)
	if !ok {
		return
	}

	var existing models.PostLike
	err := h.db(c).Where("post_id = ? AND user_id = ?", post.ID, user.ID).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		util.RespondInternalError(c, "Failed to toggle like", err)
		return
	}
	liked := errors.Is(err, gorm.ErrRecordNotFound)

	err = h.db(c).Transaction(func(tx *gorm.DB) error {
		if liked {
			if err := tx.Create(&models.PostLike{PostID: post.ID, UserID: user.ID}).Error; err != nil {
				return err
			}
			return tx.Model(&models.Post{}).Where("id = ?", post.ID).
				UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
		}
		if err := tx.Delete(&existing).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ? AND like_count > 0", post.ID).
			UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error
	})
	if err != nil {
		util.RespondInternalError(c, "Failed to toggle like", err)
		return
	}

	var likeCount int64
	h.db(c).Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&likeCount)

	if liked {
		h.notify(c.Request.Context(), notice{
			Recipient: post.UserID,
			Actor:     user.ID,
			Type:      models.NotificationPostLike,
			Title:     "New like",
			Content:   displayName(user) + postLikeMessage,
			Link:      "/posts/" + post.ID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "likeCount": likeCount})
}

// GetPostLikes lists who liked a post
// GET /api/posts/:postId/likes
func (h *Handlers) GetPostLikes(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	var likes []models.PostLike
	if err := h.db(c).Preload("User").
		Where("post_id = ?", post.ID).
		Order("created_at DESC").
		Find(&likes).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch likes", err)
		return
	}
	users := make([]models.UserSummary, 0, len(likes))
	for _, l := range likes {
		if l.User != nil {
			users = append(users, l.User.Summary())
		}
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}
