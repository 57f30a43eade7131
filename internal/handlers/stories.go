package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxStoryText = 500

// StoryStats are the engagement counters attached to listed stories
type StoryStats struct {
	ViewCount     int64 `json:"viewCount"`
	ReactionCount int64 `json:"reactionCount"`
}

// PublishedStory is the shape of /api/stories/published items
type PublishedStory struct {
	ID        string              `json:"id"`
	ImageURL  *string             `json:"imageUrl"`
	VideoURL  *string             `json:"videoUrl"`
	Text      *string             `json:"text"`
	CreatedAt time.Time           `json:"createdAt"`
	ExpiresAt time.Time           `json:"expiresAt"`
	User      *models.UserSummary `json:"user"`
	Stats     StoryStats          `json:"stats"`
}

// storyStats counts views and reactions for ids with two grouped queries
func (h *Handlers) storyStats(c *gin.Context, ids []string) (map[string]StoryStats, error) {
	out := make(map[string]StoryStats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	type row struct {
		StoryID string
		N       int64
	}
	var views, reactions []row
	if err := h.db(c).Model(&models.StoryView{}).
		Select("story_id, COUNT(*) AS n").Where("story_id IN ?", ids).
		Group("story_id").Scan(&views).Error; err != nil {
		return nil, err
	}
	if err := h.db(c).Model(&models.Reaction{}).
		Select("story_id, COUNT(*) AS n").Where("story_id IN ?", ids).
		Group("story_id").Scan(&reactions).Error; err != nil {
		return nil, err
	}
	for _, v := range views {
		s := out[v.StoryID]
		s.ViewCount = v.N
		out[v.StoryID] = s
	}
	for _, r := range reactions {
		s := out[r.StoryID]
		s.ReactionCount = r.N
		out[r.StoryID] = s
	}
	return out, nil
}

// CreateStory POST /api/stories
func (h *Handlers) CreateStory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		ImageURL string `json:"imageUrl"`
		VideoURL string `json:"videoUrl"`
		Text     string `json:"text"`
	}
	if !bindJSON(c, &req) {
		return
	}
	story := models.Story{
		UserID:   userID,
		ImageURL: optionalString(req.ImageURL),
		VideoURL: optionalString(req.VideoURL),
		Text:     optionalString(req.Text),
	}
	if story.ImageURL == nil && story.VideoURL == nil && story.Text == nil {
		util.RespondBadRequest(c, "A story needs an image, a video or text")
		return
	}
	if len([]rune(deref(story.Text))) > maxStoryText {
		util.RespondValidationError(c, "text", "Story text is too long")
		return
	}

	now := time.Now().UTC()
	story.CreatedAt = now
	story.ExpiresAt = now.Add(models.StoryLifetime)
	if err := h.db(c).Create(&story).Error; err != nil {
		util.RespondInternalError(c, "Failed to create story", err)
		return
	}
	logger.Log.Info("Story created", logger.WithUserID(userID), logger.WithStoryID(story.ID))
	c.JSON(http.StatusCreated, story)
}

// activeStories are stories that have not expired, newest first
func (h *Handlers) activeStories(c *gin.Context) *gorm.DB {
	return h.db(c).Model(&models.Story{}).Where("expires_at > ?", time.Now().UTC())
}

// GetStories lists live stories with their counters
// GET /api/stories?limit&skip
func (h *Handlers) GetStories(c *gin.Context) {
	limit, skip := util.Pagination(c, "skip")
	stories := []models.Story{}
	if err := h.activeStories(c).Preload("User").
		Order("created_at DESC").
		Limit(limit).Offset(skip).
		Find(&stories).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch stories", err)
		return
	}
	ids := make([]string, len(stories))
	for i, s := range stories {
		ids[i] = s.ID
	}
	stats, err := h.storyStats(c, ids)
	if err != nil {
		util.RespondInternalError(c, "Failed to fetch stories", err)
		return
	}

	items := make([]gin.H, 0, len(stories))
	for _, s := range stories {
		items = append(items, gin.H{
			"story":         s,
			"viewCount":     stats[s.ID].ViewCount,
			"reactionCount": stats[s.ID].ReactionCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"stories": items})
}

// GetPublishedStories GET /api/stories/published?limit&skip&userId
func (h *Handlers) GetPublishedStories(c *gin.Context) {
	limit, skip := util.Pagination(c, "skip")
	query := h.activeStories(c)
	if userID := c.Query("userId"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch stories", err)
		return
	}
	var stories []models.Story
	if err := query.Preload("User").
		Order("created_at DESC").
		Limit(limit).Offset(skip).
		Find(&stories).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch stories", err)
		return
	}
	ids := make([]string, len(stories))
	for i, s := range stories {
		ids[i] = s.ID
	}
	stats, err := h.storyStats(c, ids)
	if err != nil {
		util.RespondInternalError(c, "Failed to fetch stories", err)
		return
	}

	data := make([]PublishedStory, 0, len(stories))
	for _, s := range stories {
		data = append(data, PublishedStory{
			ID:        s.ID,
			ImageURL:  s.ImageURL,
			VideoURL:  s.VideoURL,
			Text:      s.Text,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			User:      summaryOf(s.User),
			Stats:     stats[s.ID],
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"pagination": gin.H{
			"total":   total,
			"limit":   limit,
			"skip":    skip,
			"hasMore": int64(skip+len(data)) < total,
		},
	})
}

// loadStory answers 404 for unknown stories
func (h *Handlers) loadStory(c *gin.Context) (*models.Story, bool) {
	var story models.Story
	if err := h.db(c).Preload("User").First(&story, "id = ?", c.Param("storyId")).Error; err != nil {
		util.HandleDBError(c, err, "Story")
		return nil, false
	}
	return &story, true
}

// loadLiveStory additionally answers 410 once the story expired
func (h *Handlers) loadLiveStory(c *gin.Context) (*models.Story, bool) {
	story, ok := h.loadStory(c)
	if !ok {
		return nil, false
	}
	if story.IsExpired(time.Now().UTC()) {
		util.RespondGone(c, "Story has expired")
		return nil, false
	}
	return story, true
}

// GetStory returns a live story with its viewers and reactions
// GET /api/stories/:storyId
func (h *Handlers) GetStory(c *gin.Context) {
	story, ok := h.loadLiveStory(c)
	if !ok {
		return
	}
	views := []models.StoryView{}
	if err := h.db(c).Preload("User").
		Where("story_id = ?", story.ID).
		Order("viewed_at DESC").
		Find(&views).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch story views", err)
		return
	}
	reactions := []models.Reaction{}
	if err := h.db(c).Preload("User").
		Where("story_id = ?", story.ID).
		Order("created_at ASC").
		Find(&reactions).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch story reactions", err)
		return
	}
	story.Views = views
	story.Reactions = reactions
	c.JSON(http.StatusOK, gin.H{
		"story":     story,
		"viewCount": len(views),
		"reactions": groupReactions(reactions),
	})
}

// DeleteStory removes the caller's story with its views, reactions and media
// DELETE /api/stories/:storyId
func (h *Handlers) DeleteStory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	story, ok := h.loadStory(c)
	if !ok {
		return
	}
	if story.UserID != userID {
		util.RespondForbidden(c, "You can only delete your own stories")
		return
	}
	res, err := h.kernel.Stories().Delete(c.Request.Context(), story)
	if err != nil {
		util.RespondInternalError(c, "Failed to delete story", err)
		return
	}
	logger.Log.Info("Story deleted",
		logger.WithUserID(userID),
		logger.WithStoryID(story.ID),
		zap.Int("media_deleted", res.Media),
	)
	c.JSON(http.StatusOK, gin.H{"message": "Story deleted"})
}

// ViewStory records one view per viewer; the owner's views are not counted
// POST /api/stories/:storyId/view
func (h *Handlers) ViewStory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	story, ok := h.loadLiveStory(c)
	if !ok {
		return
	}
	if story.UserID != userID {
		view := models.StoryView{StoryID: story.ID, UserID: userID}
		if err := h.db(c).Clauses(clause.OnConflict{DoNothing: true}).Create(&view).Error; err != nil {
			util.RespondInternalError(c, "Failed to record view", err)
			return
		}
	}
	var count int64
	h.db(c).Model(&models.StoryView{}).Where("story_id = ?", story.ID).Count(&count)
	c.JSON(http.StatusOK, gin.H{"viewed": true, "viewCount": count})
}

// ReactToStory toggles an emoji reaction on a live story
// POST /api/stories/:storyId/reactions
func (h *Handlers) ReactToStory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	story, ok := h.loadLiveStory(c)
	if !ok {
		return
	}
	emoji, ok := readEmoji(c)
	if !ok {
		return
	}

	var existing models.Reaction
	err := h.db(c).Where("user_id = ? AND story_id = ? AND emoji = ?", userID, story.ID, emoji).First(&existing).Error
	if err == nil {
		if err := h.db(c).Delete(&existing).Error; err != nil {
			util.RespondInternalError(c, "Failed to remove reaction", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Reaction removed", "action": "removed"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		util.RespondInternalError(c, "Failed to react", err)
		return
	}
	storyID := story.ID
	reaction := models.Reaction{UserID: userID, Emoji: emoji, StoryID: &storyID}
	if err := h.db(c).Create(&reaction).Error; err != nil {
		util.RespondInternalError(c, "Failed to react", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Reaction added", "action": "added", "reaction": reaction})
}
