package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/zfogg/unify/internal/metrics"
)

// s3API is the subset of the S3 client the uploader calls
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Uploader puts user media into a bucket served through baseURL
type S3Uploader struct {
	client  s3API
	bucket  string
	region  string
	baseURL string
	now     func() time.Time
}

// UploadResult describes a stored object
type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Bucket      string `json:"bucket"`
	Region      string `json:"region"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// NewS3Uploader loads the default AWS credential chain for region. When
// baseURL is empty objects are addressed through the bucket's S3 endpoint.
func NewS3Uploader(ctx context.Context, region, bucket, baseURL string) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Uploader(s3.NewFromConfig(cfg), region, bucket, baseURL), nil
}

func newS3Uploader(client s3API, region, bucket, baseURL string) *S3Uploader {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Uploader{
		client:  client,
		bucket:  bucket,
		region:  region,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}
}

// UploadMedia stores body under a fresh key for userID
func (u *S3Uploader) UploadMedia(ctx context.Context, body io.Reader, size int64, contentType, userID, filename string, mediaType MediaType) (*UploadResult, error) {
	if size > mediaType.MaxSize() {
		return nil, fmt.Errorf("%s exceeds %d bytes", filename, mediaType.MaxSize())
	}
	if contentType == "" {
		contentType = contentTypeFor(filepath.Ext(filename))
	}
	now := u.now().UTC()
	key := MediaKey(now, userID, mediaType, filename)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("max-age=31536000"),
		Metadata: map[string]string{
			"user-id":           userID,
			"original-filename": filename,
			"upload-timestamp":  now.Format(time.RFC3339),
			"media-type":        string(mediaType),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}
	metrics.Get().UploadBytesTotal.WithLabelValues(string(mediaType)).Add(float64(size))

	return &UploadResult{
		Key:         key,
		URL:         u.baseURL + "/" + key,
		Bucket:      u.bucket,
		Region:      u.region,
		Size:        size,
		ContentType: contentType,
	}, nil
}

// DeleteFile removes key from the bucket
func (u *S3Uploader) DeleteFile(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// KeyFromURL returns the object key of a URL served from this bucket.
// URLs pointing anywhere else report false.
func (u *S3Uploader) KeyFromURL(raw string) (string, bool) {
	return keyFromURL(u.baseURL, raw)
}

func keyFromURL(baseURL, raw string) (string, bool) {
	if raw == "" || !strings.HasPrefix(raw, baseURL+"/") {
		return "", false
	}
	key := strings.TrimPrefix(raw, baseURL+"/")
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	return key, key != ""
}

// CheckBucketAccess verifies that the bucket is reachable
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}
	return nil
}
