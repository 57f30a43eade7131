package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
)

const (
	maxFullNameLength = 80
	maxBioLength      = 500
)

// GetUserProfile returns a public profile with counters and, for signed-in
// viewers, the friendship status between them
// GET /api/users/:userId
func (h *Handlers) GetUserProfile(c *gin.Context) {
	user, ok := h.loadUser(c, c.Param("userId"))
	if !ok {
		return
	}

	var friendCount, postCount int64
	h.db(c).Model(&models.Friendship{}).
		Where("(user1_id = ? OR user2_id = ?) AND status = ?", user.ID, user.ID, models.FriendshipAccepted).
		Count(&friendCount)
	h.db(c).Model(&models.Post{}).Where("user_id = ?", user.ID).Count(&postCount)

	resp := gin.H{
		"user":        user,
		"friendCount": friendCount,
		"postCount":   postCount,
	}
	if viewer := util.OptionalUserID(c); viewer != "" {
		status, err := h.kernel.Friends().Status(c.Request.Context(), viewer, user.ID)
		if err != nil {
			util.RespondInternalError(c, "Failed to fetch friendship status", err)
			return
		}
		resp["friendshipStatus"] = status
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateMe edits the caller's profile. Absent fields are left unchanged.
// PUT /api/users/me
func (h *Handlers) UpdateMe(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req struct {
		FullName   *string `json:"fullName"`
		Bio        *string `json:"bio"`
		Avatar     *string `json:"avatar"`
		CoverImage *string `json:"coverImage"`
	}
	if !bindJSON(c, &req) {
		return
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" || len([]rune(name)) > maxFullNameLength {
			util.RespondValidationError(c, "fullName", "fullName must be 1 to 80 characters")
			return
		}
		updates["full_name"] = name
	}
	if req.Bio != nil {
		bio := strings.TrimSpace(*req.Bio)
		if len([]rune(bio)) > maxBioLength {
			util.RespondValidationError(c, "bio", "bio must be at most 500 characters")
			return
		}
		updates["bio"] = bio
	}
	if req.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*req.Avatar)
	}
	if req.CoverImage != nil {
		updates["cover_image"] = strings.TrimSpace(*req.CoverImage)
	}
	if len(updates) == 0 {
		util.RespondBadRequest(c, "No fields to update")
		return
	}

	if err := h.db(c).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		util.RespondInternalError(c, "Failed to update profile", err)
		return
	}
	updated, ok := h.loadUser(c, user.ID)
	if !ok {
		return
	}
	h.kernel.Search().IndexUser(c.Request.Context(), updated)
	c.JSON(http.StatusOK, gin.H{"user": updated})
}
