package auth

import (
	"context"

	"github.com/zfogg/unify/internal/models"
)

// ServiceInterface is what handlers and middleware depend on
type ServiceInterface interface {
	RegisterNativeUser(req RegisterRequest) (*AuthResponse, error)
	LoginNativeUser(req LoginRequest) (*AuthResponse, error)
	FindUserByEmail(email string) (*models.User, error)
	GenerateToken(user *models.User) (*AuthResponse, error)
	ParseToken(tokenString string) (string, error)
	ValidateToken(tokenString string) (*models.User, error)
	GoogleOAuthURL(state string) string
	HandleGoogleCallback(ctx context.Context, code string) (*AuthResponse, error)
	RequestPasswordReset(email string) (*models.PasswordReset, error)
	ResetPassword(token, newPassword string) error
}

var _ ServiceInterface = (*Service)(nil)
