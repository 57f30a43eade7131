package email

import (
	"context"
	"sync"
)

// SentEmail is one message captured by MockSender
type SentEmail struct {
	Kind string
	To   string
	Data map[string]string
}

// MockSender records mail instead of sending it
type MockSender struct {
	mu   sync.Mutex
	Sent []SentEmail
	Err  error
}

var _ Sender = (*MockSender)(nil)

func (m *MockSender) SendPasswordResetEmail(_ context.Context, toEmail, resetToken string) error {
	return m.record("password_reset", toEmail, map[string]string{"token": resetToken})
}

func (m *MockSender) SendFriendRequestEmail(_ context.Context, toEmail, toName, fromName, fromUsername string) error {
	return m.record("friend_request", toEmail, map[string]string{"toName": toName, "fromName": fromName, "fromUsername": fromUsername})
}

func (m *MockSender) record(kind, to string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentEmail{Kind: kind, To: to, Data: data})
	return nil
}

// Messages returns a copy of everything recorded so far
func (m *MockSender) Messages() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.Sent...)
}
