package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eventpulse/backend/internal/model"
	"github.com/eventpulse/backend/internal/service"
)

type AuthHandler struct {
	svc  *service.AuthService
	csrf *service.CsrfService
}

func NewAuthHandler(svc *service.AuthService, csrf *service.CsrfService) *AuthHandler {
	return &AuthHandler{svc: svc, csrf: csrf}
}

// Register godoc
// @Summary Register a new user
// @Description Creates an account. No session is established; log in afterwards.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Name, email and password"
// @Success 201 {object} model.MessageResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request", Code: "INVALID_REQUEST"})
		return
	}

	_, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Error: "Password must be at least 8 characters, include a number, a lowercase, an uppercase, and a special character.",
				Code:  "WEAK_PASSWORD",
			})
		case errors.Is(err, service.ErrDuplicateEmail):
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Email already in use", Code: "DUPLICATE_EMAIL"})
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid input", Code: "INVALID_REQUEST"})
		default:
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Registration failed"})
		}
		return
	}

	c.JSON(http.StatusCreated, model.MessageResponse{Message: "User registered successfully"})
}

// Login godoc
// @Summary Login
// @Description On success sets the refresh-token cookie and returns the access token. The access token is never put in a cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Email and password"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request", Code: "INVALID_REQUEST"})
		return
	}

	accessToken, refreshToken, user, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid credentials", Code: "INVALID_CREDENTIALS"})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Login failed"})
		return
	}

	h.setRefreshCookie(c, refreshToken)
	c.JSON(http.StatusOK, model.AuthResponse{
		AccessToken: accessToken,
		User:        user.Public(),
	})
}

// Refresh godoc
// @Summary Rotate the refresh token and mint a new access token
// @Description Uses the refresh-token cookie. Each refresh token is single-use: the old one is revoked and a new cookie is set.
// @Tags auth
// @Produce json
// @Success 200 {object} model.RefreshResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/auth/refresh-token [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.svc.CookieConfig().Name)

	accessToken, newRefreshToken, user, err := h.svc.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		h.writeRefreshError(c, err)
		return
	}

	h.setRefreshCookie(c, newRefreshToken)
	c.JSON(http.StatusOK, model.RefreshResponse{
		AccessToken: accessToken,
		UserID:      user.ID,
	})
}

// Logout godoc
// @Summary Logout
// @Description Revokes the refresh token (if present) and clears the cookie. Idempotent: succeeds with no cookie too.
// @Tags auth
// @Produce json
// @Success 200 {object} model.AuthLogoutResponse
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.svc.CookieConfig().Name)
	h.svc.Logout(c.Request.Context(), refreshToken)
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, model.AuthLogoutResponse{Status: "logged_out"})
}

// Me godoc
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.PublicUser
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	authUser := GetAuthUser(c)
	if authUser == nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
		return
	}

	user, err := h.svc.GetUser(c.Request.Context(), authUser.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "User not found", Code: "USER_NOT_FOUND"})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Server error"})
		return
	}

	c.JSON(http.StatusOK, user.Public())
}

// CsrfToken godoc
// @Summary Get the CSRF token
// @Description Sets the CSRF secret cookie if absent and returns the derived token. Idempotent while the cookie lives.
// @Tags auth
// @Produce json
// @Success 200 {object} model.CsrfTokenResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/auth/csrf-token [get]
func (h *AuthHandler) CsrfToken(c *gin.Context) {
	secret, err := c.Cookie(service.CsrfCookieName)
	if err != nil || secret == "" {
		secret, err = h.csrf.GenerateSecret()
		if err != nil {
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Server error"})
			return
		}
		cfg := h.csrf.CookieConfig()
		c.SetSameSite(cfg.SameSite)
		c.SetCookie(cfg.Name, secret, cfg.MaxAge, cfg.Path, cfg.Domain, cfg.Secure, true)
	}

	c.JSON(http.StatusOK, model.CsrfTokenResponse{CsrfToken: h.csrf.TokenFor(secret)})
}

// ForgotPassword godoc
// @Summary Request a password reset link
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.ForgotPasswordRequest true "Account email"
// @Success 200 {object} model.MessageResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request", Code: "INVALID_REQUEST"})
		return
	}

	if err := h.svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "User not found", Code: "USER_NOT_FOUND"})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Error sending password reset email"})
		return
	}

	c.JSON(http.StatusOK, model.MessageResponse{Message: "Password reset email sent"})
}

// ResetPassword godoc
// @Summary Reset the password with an emailed token
// @Tags auth
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param request body model.ResetPasswordRequest true "New password"
// @Success 200 {object} model.MessageResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/auth/reset-password/{token} [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request", Code: "INVALID_REQUEST"})
		return
	}

	err := h.svc.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Error: "Password must be at least 8 characters, include a number, a lowercase, an uppercase, and a special character.",
				Code:  "WEAK_PASSWORD",
			})
		case errors.Is(err, service.ErrResetTokenInvalid):
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid or expired token", Code: "INVALID_RESET_TOKEN"})
		default:
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Error resetting password"})
		}
		return
	}

	c.JSON(http.StatusOK, model.MessageResponse{Message: "Password reset successful"})
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, token, cfg.MaxAge, cfg.Path, cfg.Domain, cfg.Secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, "", -1, cfg.Path, cfg.Domain, cfg.Secure, true)
}

// writeRefreshError maps refresh failures to status+code pairs. Every
// failure clears the cookie: the presented token is dead either way.
func (h *AuthHandler) writeRefreshError(c *gin.Context, err error) {
	h.clearRefreshCookie(c)
	switch {
	case errors.Is(err, service.ErrRefreshExpired):
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "refresh token expired", Code: "REFRESH_TOKEN_EXPIRED"})
	case errors.Is(err, service.ErrRefreshRevoked):
		c.JSON(http.StatusForbidden, model.ErrorResponse{Error: "Invalid refresh token", Code: "INVALID_TOKEN_DB"})
	case errors.Is(err, service.ErrRefreshInvalid):
		c.JSON(http.StatusForbidden, model.ErrorResponse{Error: "Invalid refresh token", Code: "INVALID_REFRESH_TOKEN"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "User not found", Code: "USER_NOT_FOUND"})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Server error"})
	}
}
