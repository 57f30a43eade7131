package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaType is the declared kind of an upload
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Size caps per media type
const (
	MaxImageSize int64 = 10 << 20
	MaxVideoSize int64 = 100 << 20
)

// ParseMediaType accepts "image" or "video"
func ParseMediaType(s string) (MediaType, bool) {
	switch MediaType(strings.ToLower(s)) {
	case MediaImage:
		return MediaImage, true
	case MediaVideo:
		return MediaVideo, true
	}
	return "", false
}

// MaxSize returns the byte cap for t
func (t MediaType) MaxSize() int64 {
	if t == MediaVideo {
		return MaxVideoSize
	}
	return MaxImageSize
}

// Accepts reports whether contentType matches the media type family
func (t MediaType) Accepts(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return strings.HasPrefix(ct, string(t)+"/")
}

// MediaKey builds the object key for a new upload:
// images under posts/{y}/{m}/{user}/{uuid}{ext}, videos under posts/videos/{y}/{m}/...
func MediaKey(now time.Time, userID string, t MediaType, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = defaultExtension(t)
	}
	prefix := "posts"
	if t == MediaVideo {
		prefix = "posts/videos"
	}
	return fmt.Sprintf("%s/%d/%02d/%s/%s%s", prefix, now.Year(), now.Month(), userID, uuid.New().String(), ext)
}

func defaultExtension(t MediaType) string {
	if t == MediaVideo {
		return ".mp4"
	}
	return ".jpg"
}

// contentTypeFor guesses a MIME type from the extension when the client
// sent none
func contentTypeFor(extension string) string {
	switch strings.ToLower(extension) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}
