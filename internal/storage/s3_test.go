package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	bodies  []string
	deletes []string
	putErr  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestMediaKeyLayout(t *testing.T) {
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

	image := MediaKey(now, "u1", MediaImage, "Holiday.JPG")
	assert.True(t, strings.HasPrefix(image, "posts/2025/03/u1/"), image)
	assert.True(t, strings.HasSuffix(image, ".jpg"), image)

	video := MediaKey(now, "u1", MediaVideo, "clip")
	assert.True(t, strings.HasPrefix(video, "posts/videos/2025/03/u1/"), video)
	assert.True(t, strings.HasSuffix(video, ".mp4"), video)

	assert.NotEqual(t, image, MediaKey(now, "u1", MediaImage, "Holiday.JPG"))
}

func TestParseMediaType(t *testing.T) {
	mt, ok := ParseMediaType("IMAGE")
	assert.True(t, ok)
	assert.Equal(t, MediaImage, mt)

	_, ok = ParseMediaType("audio")
	assert.False(t, ok)
}

func TestMediaTypeAccepts(t *testing.T) {
	assert.True(t, MediaImage.Accepts("image/png"))
	assert.True(t, MediaVideo.Accepts("video/mp4; codecs=avc1"))
	assert.False(t, MediaImage.Accepts("video/mp4"))
	assert.False(t, MediaVideo.Accepts(""))
	assert.Equal(t, MaxVideoSize, MediaVideo.MaxSize())
	assert.Equal(t, MaxImageSize, MediaImage.MaxSize())
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		".jpg":  "image/jpeg",
		".JPEG": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
		".mov":  "video/quicktime",
		".bmp":  "application/octet-stream",
		"":      "application/octet-stream",
	}
	for ext, want := range tests {
		assert.Equal(t, want, contentTypeFor(ext), ext)
	}
}

func TestUploadMedia(t *testing.T) {
	fake := &fakeS3{}
	u := newS3Uploader(fake, "eu-west-1", "media", "https://cdn.example.com/")

	res, err := u.UploadMedia(context.Background(), strings.NewReader("pixels"), 6, "", "u1", "a.png", MediaImage)
	require.NoError(t, err)

	require.Len(t, fake.puts, 1)
	assert.Equal(t, "media", aws.ToString(fake.puts[0].Bucket))
	assert.Equal(t, "image/png", aws.ToString(fake.puts[0].ContentType))
	assert.Equal(t, "pixels", fake.bodies[0])
	assert.Equal(t, "https://cdn.example.com/"+res.Key, res.URL)
	assert.Equal(t, int64(6), res.Size)
}

func TestUploadMediaRejectsOversize(t *testing.T) {
	fake := &fakeS3{}
	u := newS3Uploader(fake, "eu-west-1", "media", "")
	_, err := u.UploadMedia(context.Background(), strings.NewReader(""), MaxImageSize+1, "image/png", "u1", "a.png", MediaImage)
	assert.Error(t, err)
	assert.Empty(t, fake.puts)
}

func TestUploadMediaPropagatesError(t *testing.T) {
	u := newS3Uploader(&fakeS3{putErr: errors.New("denied")}, "eu-west-1", "media", "")
	_, err := u.UploadMedia(context.Background(), strings.NewReader("x"), 1, "image/png", "u1", "a.png", MediaImage)
	assert.ErrorContains(t, err, "denied")
}

func TestKeyFromURL(t *testing.T) {
	u := newS3Uploader(&fakeS3{}, "eu-west-1", "media", "")

	key, ok := u.KeyFromURL("https://media.s3.eu-west-1.amazonaws.com/posts/2025/01/u1/x.jpg?v=2")
	assert.True(t, ok)
	assert.Equal(t, "posts/2025/01/u1/x.jpg", key)

	_, ok = u.KeyFromURL("https://elsewhere.example.com/x.jpg")
	assert.False(t, ok)

	_, ok = u.KeyFromURL("")
	assert.False(t, ok)
}

func TestDeleteFile(t *testing.T) {
	fake := &fakeS3{}
	u := newS3Uploader(fake, "eu-west-1", "media", "")
	require.NoError(t, u.DeleteFile(context.Background(), "posts/a.jpg"))
	assert.Equal(t, []string{"posts/a.jpg"}, fake.deletes)
}

func TestMockUploader(t *testing.T) {
	m := NewMockUploader("https://cdn.test")
	m.FailFor["bad.png"] = true

	_, err := m.UploadMedia(context.Background(), strings.NewReader("x"), 1, "image/png", "u1", "bad.png", MediaImage)
	assert.Error(t, err)

	res, err := m.UploadMedia(context.Background(), strings.NewReader("x"), 1, "image/png", "u1", "ok.png", MediaImage)
	require.NoError(t, err)

	key, ok := m.KeyFromURL(res.URL)
	require.True(t, ok)
	require.NoError(t, m.DeleteFile(context.Background(), key))
	assert.Equal(t, []string{key}, m.DeletedKeys())
}
