package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zfogg/unify/internal/models"
)

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockService is an in-memory ServiceInterface for middleware and handler
// tests that should not touch JWT signing or the database.
type MockService struct {
	mu    sync.Mutex
	Calls []MockCall

	// Users keyed by email, Tokens map a bearer token to its user
	Users  map[string]*models.User
	Tokens map[string]*models.User

	DefaultError error
}

func NewMockService() *MockService {
	return &MockService{
		Users:  make(map[string]*models.User),
		Tokens: make(map[string]*models.User),
	}
}

func (m *MockService) record(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// CallsFor returns the recorded calls of method
func (m *MockService) CallsFor(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockCall
	for _, call := range m.Calls {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// AddUser registers user and returns a token that authenticates as them
func (m *MockService) AddUser(user *models.User) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	token := "mock_token_" + user.ID
	m.Users[user.Email] = user
	m.Tokens[token] = user
	return token
}

func (m *MockService) issue(user *models.User) *AuthResponse {
	token := m.AddUser(user)
	return &AuthResponse{Token: token, User: *user, ExpiresAt: time.Now().Add(TokenLifetime)}
}

func (m *MockService) RegisterNativeUser(req RegisterRequest) (*AuthResponse, error) {
	m.record("RegisterNativeUser", req)
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	m.mu.Lock()
	_, exists := m.Users[req.Email]
	m.mu.Unlock()
	if exists {
		return nil, ErrUserExists
	}
	return m.issue(&models.User{Email: req.Email, Username: req.Username, FullName: req.FullName}), nil
}

func (m *MockService) LoginNativeUser(req LoginRequest) (*AuthResponse, error) {
	m.record("LoginNativeUser", req)
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	m.mu.Lock()
	user, exists := m.Users[req.Email]
	m.mu.Unlock()
	if !exists {
		return nil, ErrInvalidCredentials
	}
	return m.issue(user), nil
}

func (m *MockService) FindUserByEmail(email string) (*models.User, error) {
	m.record("FindUserByEmail", email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.Users[email]; ok {
		return user, nil
	}
	return nil, ErrUserNotFound
}

func (m *MockService) GenerateToken(user *models.User) (*AuthResponse, error) {
	m.record("GenerateToken", user.ID)
	return m.issue(user), nil
}

func (m *MockService) ParseToken(tokenString string) (string, error) {
	m.record("ParseToken", tokenString)
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.Tokens[tokenString]; ok {
		return user.ID, nil
	}
	return "", ErrInvalidToken
}

func (m *MockService) ValidateToken(tokenString string) (*models.User, error) {
	m.record("ValidateToken", tokenString)
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.Tokens[tokenString]; ok {
		return user, nil
	}
	return nil, ErrInvalidToken
}

func (m *MockService) GoogleOAuthURL(state string) string {
	m.record("GoogleOAuthURL", state)
	return "https://accounts.google.com/o/oauth2/v2/auth?state=" + state
}

func (m *MockService) HandleGoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	m.record("HandleGoogleCallback", code)
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return m.issue(&models.User{Email: code + "@gmail.com", Username: code}), nil
}

func (m *MockService) RequestPasswordReset(email string) (*models.PasswordReset, error) {
	m.record("RequestPasswordReset", email)
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	m.mu.Lock()
	user, ok := m.Users[email]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return &models.PasswordReset{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(ResetTokenLifetime),
	}, nil
}

func (m *MockService) ResetPassword(token, newPassword string) error {
	m.record("ResetPassword", token, newPassword)
	return m.DefaultError
}

var _ ServiceInterface = (*MockService)(nil)
