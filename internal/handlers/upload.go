package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/storage"
	"github.com/zfogg/unify/internal/util"
	"go.uber.org/zap"
)

// maxUploadFiles bounds one multipart request
const maxUploadFiles = 10

// UploadMedia stores every file of the files[] field and returns their URLs.
// Files that fail validation or upload are skipped.
// POST /api/upload
func (h *Handlers) UploadMedia(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	media := h.kernel.Media()
	if media == nil {
		util.RespondServiceUnavailable(c, "Media storage")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		util.RespondBadRequest(c, "No files provided")
		return
	}
	files := form.File["files[]"]
	if len(files) == 0 {
		files = form.File["files"]
	}
	if len(files) == 0 {
		util.RespondBadRequest(c, "No files provided")
		return
	}
	if len(files) > maxUploadFiles {
		util.RespondBadRequest(c, "Too many files")
		return
	}
	mediaType, ok := storage.ParseMediaType(c.PostForm("type"))
	if !ok {
		util.RespondValidationError(c, "type", "type must be image or video")
		return
	}

	urls := []string{}
	for _, fh := range files {
		contentType := fh.Header.Get("Content-Type")
		fields := []zap.Field{logger.WithUserID(userID), zap.String("filename", fh.Filename), zap.Int64("size", fh.Size)}
		if !mediaType.Accepts(contentType) {
			logger.Log.Warn("Skipping upload with mismatched content type", append(fields, zap.String("content_type", contentType))...)
			continue
		}
		if fh.Size > mediaType.MaxSize() {
			logger.Log.Warn("Skipping oversized upload", fields...)
			continue
		}
		f, err := fh.Open()
		if err != nil {
			logger.Log.Warn("Failed to open upload", append(fields, zap.Error(err))...)
			continue
		}
		res, err := media.UploadMedia(c.Request.Context(), f, fh.Size, strings.TrimSpace(contentType), userID, fh.Filename, mediaType)
		f.Close()
		if err != nil {
			logger.Log.Warn("Failed to store upload", append(fields, zap.Error(err))...)
			continue
		}
		urls = append(urls, res.URL)
	}

	if len(urls) == 0 {
		util.RespondInternalError(c, "Failed to upload files")
		return
	}
	c.JSON(http.StatusOK, gin.H{"urls": urls})
}
