package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zfogg/unify/internal/auth"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/util"
)

const oauthStateCookie = "unify_oauth_state"

// Register creates an email/password account
// POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "email, username, password (8+ characters) and fullName are required")
		return
	}
	resp, err := h.kernel.Auth().RegisterNativeUser(req)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		util.RespondConflict(c, "Email is already registered")
		return
	case errors.Is(err, auth.ErrUsernameExists):
		util.RespondConflict(c, "Username is already taken")
		return
	case err != nil:
		util.RespondInternalError(c, "Failed to register", err)
		return
	}
	h.kernel.Search().IndexUser(c.Request.Context(), &resp.User)
	c.JSON(http.StatusCreated, resp)
}

// Login POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "email and password are required")
		return
	}
	resp, err := h.kernel.Auth().LoginNativeUser(req)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		util.RespondUnauthorized(c, "Invalid email or password")
		return
	case errors.Is(err, auth.ErrNoPassword):
		util.RespondUnauthorized(c, err.Error())
		return
	case err != nil:
		util.RespondInternalError(c, "Failed to log in", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GoogleLogin redirects to Google's consent screen
// GET /api/auth/google
func (h *Handlers) GoogleLogin(c *gin.Context) {
	state := uuid.New().String()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/api/auth", "", h.isProduction(), true)
	c.Redirect(http.StatusTemporaryRedirect, h.kernel.Auth().GoogleOAuthURL(state))
}

// GoogleCallback finishes the OAuth flow. With a web base URL configured it
// redirects there carrying the token; otherwise it answers JSON.
// GET /api/auth/google/callback
func (h *Handlers) GoogleCallback(c *gin.Context) {
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		util.RespondBadRequest(c, "Invalid OAuth state")
		return
	}
	code := c.Query("code")
	if code == "" {
		util.RespondBadRequest(c, "Missing authorization code")
		return
	}
	resp, err := h.kernel.Auth().HandleGoogleCallback(c.Request.Context(), code)
	if err != nil {
		logger.WarnWithFields("Google login failed", err, logger.WithIP(c.ClientIP()))
		util.RespondUnauthorized(c, "Google authentication failed")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/api/auth", "", h.isProduction(), true)
	h.kernel.Search().IndexUser(c.Request.Context(), &resp.User)

	if base := h.kernel.Config().WebBaseURL; base != "" {
		c.Redirect(http.StatusTemporaryRedirect,
			strings.TrimRight(base, "/")+"/auth/callback?token="+url.QueryEscape(resp.Token))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RequestPasswordReset always answers 200 so the endpoint cannot be used to
// probe which emails are registered
// POST /api/auth/password/reset
func (h *Handlers) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, "email", "A valid email is required")
		return
	}

	reset, err := h.kernel.Auth().RequestPasswordReset(req.Email)
	if err != nil {
		logger.ErrorWithFields("Failed to create password reset", err)
	}
	if reset != nil {
		if mailer := h.kernel.Mailer(); mailer != nil {
			if err := mailer.SendPasswordResetEmail(c.Request.Context(), req.Email, reset.Token); err != nil {
				logger.ErrorWithFields("Failed to send password reset email", err, logger.WithUserID(reset.UserID))
			}
		} else {
			logger.Log.Warn("Password reset requested but email is not configured", logger.WithUserID(reset.UserID))
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "If that email is registered, a reset link is on its way"})
}

// ConfirmPasswordReset POST /api/auth/password/reset/confirm
func (h *Handlers) ConfirmPasswordReset(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "token and password (8+ characters) are required")
		return
	}
	if err := h.kernel.Auth().ResetPassword(req.Token, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidResetToken) {
			util.RespondBadRequest(c, err.Error())
			return
		}
		util.RespondInternalError(c, "Failed to reset password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// Me GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
