package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MockUploader keeps uploads in memory. FailFor makes uploads of the named
// files fail.
type MockUploader struct {
	BaseURL string
	FailFor map[string]bool

	mu      sync.Mutex
	Objects map[string][]byte
	Deleted []string
}

func NewMockUploader(baseURL string) *MockUploader {
	return &MockUploader{
		BaseURL: baseURL,
		FailFor: map[string]bool{},
		Objects: map[string][]byte{},
	}
}

func (m *MockUploader) UploadMedia(_ context.Context, body io.Reader, size int64, contentType, userID, filename string, mediaType MediaType) (*UploadResult, error) {
	if m.FailFor[filename] {
		return nil, fmt.Errorf("mock upload failure for %s", filename)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	key := MediaKey(time.Now().UTC(), userID, mediaType, filename)

	m.mu.Lock()
	m.Objects[key] = data
	m.mu.Unlock()

	return &UploadResult{
		Key:         key,
		URL:         m.BaseURL + "/" + key,
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

func (m *MockUploader) DeleteFile(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, key)
	m.Deleted = append(m.Deleted, key)
	return nil
}

func (m *MockUploader) KeyFromURL(raw string) (string, bool) {
	return keyFromURL(m.BaseURL, raw)
}

// DeletedKeys returns a copy of the keys passed to DeleteFile
func (m *MockUploader) DeletedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Deleted...)
}
