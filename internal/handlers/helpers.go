package handlers

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
)

// bindJSON decodes the body into req, answering 400 on malformed input.
// An empty body leaves req at its zero value so handlers can report the
// missing field themselves.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		util.RespondBadRequest(c, "Invalid request body")
		return false
	}
	return true
}

// optionalString returns nil for blank input
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// summaryOf tolerates a missing preload
func summaryOf(u *models.User) *models.UserSummary {
	if u == nil {
		return nil
	}
	s := u.Summary()
	return &s
}

// loadUser answers 404 when id is unknown
func (h *Handlers) loadUser(c *gin.Context, id string) (*models.User, bool) {
	var user models.User
	if err := h.db(c).First(&user, "id = ?", id).Error; err != nil {
		util.HandleDBError(c, err, "User")
		return nil, false
	}
	return &user, true
}

// pageMeta is the offset pagination block shared by list endpoints
func pageMeta(limit, offset int, count int, total int64) gin.H {
	return gin.H{
		"limit":   limit,
		"offset":  offset,
		"count":   count,
		"total":   total,
		"hasMore": int64(offset+count) < total,
	}
}
