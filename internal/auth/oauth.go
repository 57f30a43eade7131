package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zfogg/unify/internal/database"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// OAuthUserInfo is the provider-neutral profile returned after a code exchange
type OAuthUserInfo struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleOAuthURL returns the consent URL carrying state
func (s *Service) GoogleOAuthURL(state string) string {
	return s.googleConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// HandleGoogleCallback exchanges code and signs the user in
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	info, err := s.googleUserInfo(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google user info: %w", err)
	}
	user, err := s.FindOrCreateOAuthUser(info)
	if err != nil {
		return nil, err
	}
	return s.GenerateToken(user)
}

func (s *Service) googleUserInfo(ctx context.Context, code string) (*OAuthUserInfo, error) {
	ctx, span := telemetry.TraceExternalCall(ctx, telemetry.ExternalCall{Service: "google", Operation: "userinfo"})
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	// oauth2 picks up the instrumented client from the context for the exchange
	ctx = context.WithValue(ctx, oauth2.HTTPClient, telemetry.NewInstrumentedHTTPClient(0))

	token, err := s.googleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	resp, err := s.googleConfig.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("userinfo returned status %d", resp.StatusCode)
		return nil, err
	}

	var gu googleUserInfo
	if err = json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	if gu.Email == "" || !gu.EmailVerified {
		err = errors.New("google account has no verified email")
		return nil, err
	}

	return &OAuthUserInfo{ID: gu.Sub, Email: gu.Email, Name: gu.Name, AvatarURL: gu.Picture}, nil
}

// FindOrCreateOAuthUser matches by Google id, then by email (linking the
// account), and otherwise creates a new user with a unique username
func (s *Service) FindOrCreateOAuthUser(info *OAuthUserInfo) (*models.User, error) {
	var user models.User
	err := database.DB.Where("google_id = ?", info.ID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	existing, err := s.FindUserByEmail(info.Email)
	if err == nil {
		updates := map[string]interface{}{"google_id": info.ID}
		if existing.Avatar == "" && info.AvatarURL != "" {
			updates["avatar"] = info.AvatarURL
		}
		if err := database.DB.Model(existing).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to link Google account: %w", err)
		}
		logger.Log.Info("Linked Google account", logger.WithUserID(existing.ID))
		return existing, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	username, err := s.ensureUniqueUsername(usernameFromName(info.Name))
	if err != nil {
		return nil, err
	}
	googleID := info.ID
	user = models.User{
		Email:      info.Email,
		Username:   username,
		FullName:   info.Name,
		Avatar:     info.AvatarURL,
		IsVerified: true,
		GoogleID:   &googleID,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	logger.Log.Info("User registered via Google", logger.WithUserID(user.ID), zap.String("username", user.Username))
	return &user, nil
}

func (s *Service) ensureUniqueUsername(base string) (string, error) {
	username := base
	for counter := 1; counter < 1000; counter++ {
		var count int64
		if err := database.DB.Model(&models.User{}).
			Where("LOWER(username) = LOWER(?)", username).Count(&count).Error; err != nil {
			return "", fmt.Errorf("database error: %w", err)
		}
		if count == 0 {
			return username, nil
		}
		username = fmt.Sprintf("%s%d", base, counter)
	}
	return "", errors.New("unable to generate unique username")
}

func usernameFromName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		out = "member"
	}
	if len(out) > 20 {
		out = out[:20]
	}
	return out
}
