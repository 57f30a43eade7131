package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetUserPhotos GET /api/users/:userId/photos?type=
func (h *Handlers) GetUserPhotos(c *gin.Context) {
	user, ok := h.loadUser(c, c.Param("userId"))
	if !ok {
		return
	}
	query := h.db(c).Where("user_id = ?", user.ID)
	if t := c.Query("type"); t != "" {
		if !models.IsValidPhotoType(t) {
			util.RespondValidationError(c, "type", "type must be profile, cover or gallery")
			return
		}
		query = query.Where("type = ?", t)
	}
	photos := []models.PhotoGallery{}
	if err := query.Order("created_at DESC").Find(&photos).Error; err != nil {
		util.RespondInternalError(c, "Failed to fetch photos", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": photos})
}

// ownGallery answers 403 unless the caller is :userId
func ownGallery(c *gin.Context) (string, bool) {
	callerID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return "", false
	}
	if callerID != c.Param("userId") {
		util.RespondForbidden(c, "You can only manage your own photos")
		return "", false
	}
	return callerID, true
}

// AddUserPhoto stores a photo. Profile and cover photos replace the previous
// one and update the user record.
// POST /api/users/:userId/photos
func (h *Handlers) AddUserPhoto(c *gin.Context) {
	userID, ok := ownGallery(c)
	if !ok {
		return
	}
	var req struct {
		URL     string `json:"url"`
		Type    string `json:"type"`
		Caption string `json:"caption"`
	}
	if !bindJSON(c, &req) {
		return
	}
	url := strings.TrimSpace(req.URL)
	if url == "" || req.Type == "" {
		util.RespondBadRequest(c, "url and type are required")
		return
	}
	if !models.IsValidPhotoType(req.Type) {
		util.RespondValidationError(c, "type", "type must be profile, cover or gallery")
		return
	}

	photo := models.PhotoGallery{UserID: userID, URL: url, Type: req.Type, Caption: optionalString(req.Caption)}
	var replaced []models.PhotoGallery
	err := h.db(c).Transaction(func(tx *gorm.DB) error {
		if req.Type != models.PhotoTypeGallery {
			if err := tx.Where("user_id = ? AND type = ?", userID, req.Type).Find(&replaced).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ? AND type = ?", userID, req.Type).Delete(&models.PhotoGallery{}).Error; err != nil {
				return err
			}
			column := "avatar"
			if req.Type == models.PhotoTypeCover {
				column = "cover_image"
			}
			if err := tx.Model(&models.User{}).Where("id = ?", userID).Update(column, url).Error; err != nil {
				return err
			}
		}
		return tx.Create(&photo).Error
	})
	if err != nil {
		util.RespondInternalError(c, "Failed to save photo", err)
		return
	}
	for _, old := range replaced {
		if old.URL != url {
			h.removeMedia(c, old.URL)
		}
	}
	if req.Type != models.PhotoTypeGallery {
		if user, ok := h.loadUserQuiet(c, userID); ok {
			h.kernel.Search().IndexUser(c.Request.Context(), user)
		}
	}
	c.JSON(http.StatusOK, gin.H{"photo": photo})
}

// loadPhoto answers 404 unless :photoId belongs to :userId
func (h *Handlers) loadPhoto(c *gin.Context, userID string) (*models.PhotoGallery, bool) {
	var photo models.PhotoGallery
	if err := h.db(c).Where("id = ? AND user_id = ?", c.Param("photoId"), userID).First(&photo).Error; err != nil {
		util.HandleDBError(c, err, "Photo")
		return nil, false
	}
	return &photo, true
}

// UpdateUserPhoto edits the caption
// PUT /api/users/:userId/photos/:photoId
func (h *Handlers) UpdateUserPhoto(c *gin.Context) {
	userID, ok := ownGallery(c)
	if !ok {
		return
	}
	photo, ok := h.loadPhoto(c, userID)
	if !ok {
		return
	}
	var req struct {
		Caption string `json:"caption"`
	}
	if !bindJSON(c, &req) {
		return
	}
	photo.Caption = optionalString(req.Caption)
	if err := h.db(c).Model(photo).Update("caption", photo.Caption).Error; err != nil {
		util.RespondInternalError(c, "Failed to update photo", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo": photo})
}

// DeleteUserPhoto removes the photo and its stored object
// DELETE /api/users/:userId/photos/:photoId
func (h *Handlers) DeleteUserPhoto(c *gin.Context) {
	userID, ok := ownGallery(c)
	if !ok {
		return
	}
	photo, ok := h.loadPhoto(c, userID)
	if !ok {
		return
	}
	if err := h.db(c).Delete(photo).Error; err != nil {
		util.RespondInternalError(c, "Failed to delete photo", err)
		return
	}
	h.removeMedia(c, photo.URL)
	c.JSON(http.StatusOK, gin.H{"message": "Photo deleted"})
}

// removeMedia deletes url from storage when it points into our bucket
func (h *Handlers) removeMedia(c *gin.Context, url string) {
	media := h.kernel.Media()
	if media == nil {
		return
	}
	key, ok := media.KeyFromURL(url)
	if !ok {
		return
	}
	if err := media.DeleteFile(c.Request.Context(), key); err != nil {
		logger.WarnWithFields("Failed to delete stored media", err, zap.String("key", key))
	}
}

func (h *Handlers) loadUserQuiet(c *gin.Context, id string) (*models.User, bool) {
	var user models.User
	if err := h.db(c).First(&user, "id = ?", id).Error; err != nil {
		return nil, false
	}
	return &user, true
}
