package kernel

import (
	"github.com/zfogg/unify/internal/auth"
	"github.com/zfogg/unify/internal/email"
	"github.com/zfogg/unify/internal/friends"
	"github.com/zfogg/unify/internal/search"
	"github.com/zfogg/unify/internal/storage"
	"github.com/zfogg/unify/internal/stories"
	"github.com/zfogg/unify/internal/typing"
	"github.com/zfogg/unify/internal/websocket"
	"gorm.io/gorm"
)

// MockKernel is a Kernel wired with in-memory doubles for tests
type MockKernel struct {
	*Kernel

	AuthMock    *auth.MockService
	MediaMock   *storage.MockUploader
	MailerMock  *email.MockSender
	PushMock    *websocket.Recorder
	TypingStore *typing.MemoryStore
}

// NewMock builds every service over db with no Redis, Elasticsearch or AWS
func NewMock(db *gorm.DB) *MockKernel {
	m := &MockKernel{
		Kernel:      New(),
		AuthMock:    auth.NewMockService(),
		MediaMock:   storage.NewMockUploader("https://cdn.test"),
		MailerMock:  &email.MockSender{},
		PushMock:    websocket.NewRecorder(),
		TypingStore: typing.NewMemoryStore(),
	}
	friendsService := friends.NewService(db, nil)
	m.SetDB(db).
		SetAuth(m.AuthMock).
		SetFriends(friendsService).
		SetTyping(typing.NewService(m.TypingStore, m.PushMock)).
		SetSearch(search.NewService(db, nil, nil, friendsService)).
		SetStories(stories.NewService(db, m.MediaMock)).
		SetMedia(m.MediaMock).
		SetMailer(m.MailerMock).
		SetPusher(m.PushMock)
	return m
}

// WithoutMedia drops the media uploader to exercise the unconfigured path
func (m *MockKernel) WithoutMedia() *MockKernel {
	m.SetMedia(nil)
	return m
}
