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

// GetPages lists pages the caller owns or follows
// GET /api/pages
func (h *Handlers) GetPages(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var memberships []models.PageMember
	if err := h.db(c).Preload("Page").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&memberships).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch pages", err)
		return
	}
	pages := make([]gin.H, 0, len(memberships))
	for _, m := range memberships {
		if m.Page == nil {
			continue
		}
		pages = append(pages, gin.H{
			"id":          m.Page.ID,
			"name":        m.Page.Name,
			"description": m.Page.Description,
			"image":       m.Page.Image,
			"category":    m.Page.Category,
			"isVerified":  m.Page.IsVerified,
			"role":        m.Role,
		})
	}
	c.JSON(http.StatusOK, gin.H{"pages": pages})
}

// CreatePage POST /api/pages
func (h *Handlers) CreatePage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Image       string `json:"image"`
		CoverImage  string `json:"coverImage"`
		Category    string `json:"category"`
	}
	if !bindJSON(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		util.RespondValidationError(c, "name", "Page name is required")
		return
	}

	page := models.Page{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Image:       req.Image,
		CoverImage:  req.CoverImage,
		Category:    strings.TrimSpace(req.Category),
		OwnerID:     userID,
	}
	err := h.db(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&page).Error; err != nil {
			return err
		}
		return tx.Create(&models.PageMember{PageID: page.ID, UserID: userID, Role: models.PageRoleOwner}).Error
	})
	if err != nil {
		util.RespondInternalError(c, "Failed to create page", err)
		return
	}

	h.kernel.Search().IndexPage(c.Request.Context(), &page)
	c.JSON(http.StatusCreated, page)
}

// GetPage GET /api/pages/:id
func (h *Handlers) GetPage(c *gin.Context) {
	var page models.Page
	if err := h.db(c).First(&page, "id = ?", c.Param("id")).Error; err != nil {
		util.HandleDBError(c, err, "Page")
		return
	}
	var followers int64
	h.db(c).Model(&models.PageMember{}).Where("page_id = ?", page.ID).Count(&followers)

	isFollowing := false
	if viewer := util.OptionalUserID(c); viewer != "" {
		var n int64
		h.db(c).Model(&models.PageMember{}).Where("page_id = ? AND user_id = ?", page.ID, viewer).Count(&n)
		isFollowing = n > 0
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "followerCount": followers, "isFollowing": isFollowing})
}

// FollowPage POST /api/pages/follow {pageId}
func (h *Handlers) FollowPage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		PageID string `json:"pageId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.PageID == "" {
		util.RespondValidationError(c, "pageId", "pageId is required")
		return
	}

	var page models.Page
	if err := h.db(c).First(&page, "id = ?", req.PageID).Error; err != nil {
		util.HandleDBError(c, err, "Page")
		return
	}
	var existing int64
	if err := h.db(c).Model(&models.PageMember{}).
		Where("page_id = ? AND user_id = ?", page.ID, userID).
		Count(&existing).Error; err != nil {
		util.RespondInternalError(c, "Failed to check membership", err)
		return
	}
	if existing > 0 {
		util.RespondBadRequest(c, "Already following this page")
		return
	}

	member := models.PageMember{PageID: page.ID, UserID: userID, Role: models.PageRoleFollower}
	if err := h.db(c).Create(&member).Error; err != nil {
		util.RespondInternalError(c, "Failed to follow page", err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// UnfollowPage DELETE /api/pages/follow?pageId=
func (h *Handlers) UnfollowPage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	pageID := c.Query("pageId")
	if pageID == "" {
		util.RespondValidationError(c, "pageId", "pageId is required")
		return
	}
	var member models.PageMember
	if err := h.db(c).Where("page_id = ? AND user_id = ?", pageID, userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "Membership")
			return
		}
		util.RespondInternalError(c, "Failed to check membership", err)
		return
	}
	if member.Role == models.PageRoleOwner {
		util.RespondForbidden(c, "The page owner cannot unfollow the page")
		return
	}
	if err := h.db(c).Delete(&member).Error; err != nil {
		util.RespondInternalError(c, "Failed to unfollow page", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
