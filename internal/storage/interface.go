package storage

import (
	"context"
	"io"
)

// MediaUploader stores user media and maps public URLs back to object keys
type MediaUploader interface {
	UploadMedia(ctx context.Context, body io.Reader, size int64, contentType, userID, filename string, mediaType MediaType) (*UploadResult, error)
	DeleteFile(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

var (
	_ MediaUploader = (*S3Uploader)(nil)
	_ MediaUploader = (*MockUploader)(nil)
)
