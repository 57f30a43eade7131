package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zfogg/unify/internal/database"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("email already registered")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoPassword         = errors.New("account has no password, sign in with Google")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

const (
	TokenLifetime      = 24 * time.Hour
	ResetTokenLifetime = time.Hour
)

// Service issues and validates JWTs and owns the account lifecycle
type Service struct {
	jwtSecret    []byte
	googleConfig *oauth2.Config
	now          func() time.Time
}

// NewService builds the service. apiBaseURL is used for the Google callback.
func NewService(jwtSecret []byte, googleClientID, googleClientSecret, apiBaseURL string) *Service {
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:8787"
	}
	return &Service{
		jwtSecret: jwtSecret,
		googleConfig: &oauth2.Config{
			ClientID:     googleClientID,
			ClientSecret: googleClientSecret,
			RedirectURL:  strings.TrimRight(apiBaseURL, "/") + "/api/auth/google/callback",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		now: time.Now,
	}
}

type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName" binding:"required,min=1,max=80"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterNativeUser creates an email/password account. An existing
// Google-only account with the same email gets the password attached instead.
func (s *Service) RegisterNativeUser(req RegisterRequest) (*AuthResponse, error) {
	existing, err := s.FindUserByEmail(req.Email)
	switch {
	case err == nil:
		if existing.PasswordHash == nil {
			return s.addPassword(existing, req.Password)
		}
		return nil, ErrUserExists
	case !errors.Is(err, ErrUserNotFound):
		return nil, err
	}

	var count int64
	if err := database.DB.Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", req.Username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashStr := string(hash)

	user := models.User{
		Email:        strings.TrimSpace(req.Email),
		Username:     strings.TrimSpace(req.Username),
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: &hashStr,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Log.Info("User registered", logger.WithUserID(user.ID), zap.String("username", user.Username))
	return s.GenerateToken(&user)
}

// LoginNativeUser checks an email/password pair
func (s *Service) LoginNativeUser(req LoginRequest) (*AuthResponse, error) {
	user, err := s.FindUserByEmail(req.Email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == nil {
		return nil, ErrNoPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	user.LastActiveAt = &now
	if err := database.DB.Model(user).Update("last_active_at", now).Error; err != nil {
		logger.WarnWithFields("Failed to update last_active_at", err, logger.WithUserID(user.ID))
	}

	return s.GenerateToken(user)
}

// FindUserByEmail looks a user up case-insensitively
func (s *Service) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := database.DB.Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (s *Service) addPassword(user *models.User, password string) (*AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashStr := string(hash)
	user.PasswordHash = &hashStr
	if err := database.DB.Model(user).Update("password_hash", hashStr).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.GenerateToken(user)
}

// GenerateToken signs a 24h HS256 token for user
func (s *Service) GenerateToken(user *models.User) (*AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(TokenLifetime)

	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"email":    user.Email,
		"username": user.Username,
		"exp":      expiresAt.Unix(),
		"iat":      now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{Token: signed, User: *user, ExpiresAt: expiresAt}, nil
}

// ParseToken verifies signature and expiry and returns the user id claim
func (s *Service) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	return userID, nil
}

// ValidateToken parses the token and loads the current user row
func (s *Service) ValidateToken(tokenString string) (*models.User, error) {
	userID, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

// RequestPasswordReset stores a single-use token. It returns nil, nil when
// there is nothing to reset so callers never reveal which emails exist.
func (s *Service) RequestPasswordReset(email string) (*models.PasswordReset, error) {
	user, err := s.FindUserByEmail(email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == nil {
		return nil, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	reset := models.PasswordReset{
		UserID:    user.ID,
		Token:     hex.EncodeToString(buf),
		ExpiresAt: s.now().Add(ResetTokenLifetime),
	}
	if err := database.DB.Create(&reset).Error; err != nil {
		return nil, fmt.Errorf("failed to create reset token: %w", err)
	}
	return &reset, nil
}

// ResetPassword consumes a reset token and sets a new password
func (s *Service) ResetPassword(token, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		var reset models.PasswordReset
		err := tx.Where("token = ? AND used = ? AND expires_at > ?", token, false, s.now()).First(&reset).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}

		if err := tx.Model(&models.User{}).Where("id = ?", reset.UserID).
			Update("password_hash", string(hash)).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return tx.Model(&reset).Update("used", true).Error
	})
}
