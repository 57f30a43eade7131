package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
	"gorm.io/gorm"
)

// GetGroups lists the groups the caller has joined
// GET /api/groups
func (h *Handlers) GetGroups(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var memberships []models.GroupMember
	if err := h.db(c).Preload("Group").
		Where("user_id = ? AND joined_at IS NOT NULL", userID).
		Order("joined_at DESC").
		Find(&memberships).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch groups", err)
		return
	}

	groups := make([]gin.H, 0, len(memberships))
	for _, m := range memberships {
		if m.Group == nil {
			continue
		}
		groups = append(groups, gin.H{
			"id":          m.Group.ID,
			"name":        m.Group.Name,
			"description": m.Group.Description,
			"image":       m.Group.Image,
			"isPrivate":   m.Group.IsPrivate,
			"adminId":     m.Group.AdminID,
			"role":        m.Role,
			"joinedAt":    m.JoinedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// CreateGroup makes the caller the group's admin member
// POST /api/groups
func (h *Handlers) CreateGroup(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Image       string `json:"image"`
		IsPrivate   bool   `json:"isPrivate"`
	}
	if !bindJSON(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		util.RespondValidationError(c, "name", "Group name is required")
		return
	}

	group := models.Group{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Image:       req.Image,
		AdminID:     userID,
		IsPrivate:   req.IsPrivate,
	}
	now := time.Now().UTC()
	err := h.db(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&models.GroupMember{
			GroupID:  group.ID,
			UserID:   userID,
			Role:     models.GroupRoleAdmin,
			JoinedAt: &now,
		}).Error
	})
	if err != nil {
		util.RespondInternalError(c, "Failed to create group", err)
		return
	}

	h.kernel.Search().IndexGroup(c.Request.Context(), &group)
	c.JSON(http.StatusCreated, group)
}

// GetGroup GET /api/groups/:id
func (h *Handlers) GetGroup(c *gin.Context) {
	var group models.Group
	if err := h.db(c).Preload("Admin").First(&group, "id = ?", c.Param("id")).Error; err != nil {
		util.HandleDBError(c, err, "Group")
		return
	}

	var memberCount int64
	h.db(c).Model(&models.GroupMember{}).Where("group_id = ? AND joined_at IS NOT NULL", group.ID).Count(&memberCount)

	isMember := false
	role := ""
	if viewer := util.OptionalUserID(c); viewer != "" {
		var m models.GroupMember
		if err := h.db(c).Where("group_id = ? AND user_id = ?", group.ID, viewer).First(&m).Error; err == nil {
			isMember = m.JoinedAt != nil
			role = m.Role
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"group":       group,
		"memberCount": memberCount,
		"isMember":    isMember,
		"role":        role,
	})
}

// JoinGroup POST /api/groups/join {groupId}
func (h *Handlers) JoinGroup(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req struct {
		GroupID string `json:"groupId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.GroupID == "" {
		util.RespondValidationError(c, "groupId", "groupId is required")
		return
	}

	var group models.Group
	if err := h.db(c).First(&group, "id = ?", req.GroupID).Error; err != nil {
		util.HandleDBError(c, err, "Group")
		return
	}

	var existing models.GroupMember
	err := h.db(c).Where("group_id = ? AND user_id = ?", group.ID, user.ID).First(&existing).Error
	switch {
	case err == nil && existing.JoinedAt != nil:
		util.RespondBadRequest(c, "Already a member of this group")
		return
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		util.RespondInternalError(c, "Failed to check membership", err)
		return
	}

	// a pending invitation lets the invitee into a private group
	invited := err == nil
	if group.IsPrivate && !invited {
		util.RespondForbidden(c, "This group is private")
		return
	}

	now := time.Now().UTC()
	member := existing
	if invited {
		if err := h.db(c).Model(&member).Update("joined_at", now).Error; err != nil {
			util.RespondInternalError(c, "Failed to join group", err)
			return
		}
		member.JoinedAt = &now
	} else {
		member = models.GroupMember{GroupID: group.ID, UserID: user.ID, Role: models.GroupRoleMember, JoinedAt: &now}
		if err := h.db(c).Create(&member).Error; err != nil {
			util.RespondInternalError(c, "Failed to join group", err)
			return
		}
	}

	logger.Log.Info("User joined group", logger.WithUserID(user.ID), logger.WithGroupID(group.ID))
	h.notify(c.Request.Context(), notice{
		Recipient: group.AdminID,
		Actor:     user.ID,
		Type:      models.NotificationGroupMemberJoined,
		Title:     "New group member",
		Content:   displayName(user) + " joined " + group.Name,
		Link:      "/groups/" + group.ID,
	})

	c.JSON(http.StatusCreated, member)
}

// LeaveGroup DELETE /api/groups/join?groupId=
func (h *Handlers) LeaveGroup(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	groupID := c.Query("groupId")
	if groupID == "" {
		util.RespondValidationError(c, "groupId", "groupId is required")
		return
	}

	var member models.GroupMember
	if err := h.db(c).Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "Membership")
			return
		}
		util.RespondInternalError(c, "Failed to check membership", err)
		return
	}
	if member.Role == models.GroupRoleAdmin {
		util.RespondForbidden(c, "The group admin cannot leave the group")
		return
	}
	if err := h.db(c).Delete(&member).Error; err != nil {
		util.RespondInternalError(c, "Failed to leave group", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
