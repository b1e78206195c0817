package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventpulse/backend/internal/model"
	"github.com/eventpulse/backend/internal/service"
)

const authUserKey = "auth_user"

// AuthMiddleware enforces a valid bearer token. Expiry is reported with a
// distinct code so clients can refresh and retry instead of forcing a
// re-login.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized", Code: "TOKEN_MISSING"})
			return
		}

		user, err := authService.VerifyAccess(token)
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "access token expired", Code: "TOKEN_EXPIRED"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "invalid token", Code: "TOKEN_INVALID"})
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches an identity when a valid bearer token is
// present but never rejects the request. Used on routes that show more to
// authenticated viewers (e.g. an owner's unpublished event).
func OptionalAuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := authService.VerifyAccess(token); err == nil {
				c.Set(authUserKey, user)
			}
		}
		c.Next()
	}
}

// RequireRole gates a route on the role carried by the verified token.
// Runs after AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetAuthUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, model.ErrorResponse{Error: "insufficient permissions", Code: "FORBIDDEN"})
	}
}

// CsrfMiddleware validates the double-submit pair on unsafe methods. Safe
// methods always pass without CSRF material.
func CsrfMiddleware(csrf *service.CsrfService) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		secret, _ := c.Cookie(service.CsrfCookieName)
		token := c.GetHeader(service.CsrfHeaderName)

		if err := csrf.Validate(secret, token); err != nil {
			// Distinct reason codes aid debugging without leaking the secret.
			var code string
			switch {
			case errors.Is(err, service.ErrCsrfSecretMissing):
				code = "CSRF_SECRET_MISSING"
			case errors.Is(err, service.ErrCsrfTokenMissing):
				code = "CSRF_TOKEN_MISSING"
			default:
				code = "CSRF_TOKEN_MISMATCH"
			}
			c.AbortWithStatusJSON(http.StatusForbidden, model.ErrorResponse{Error: "csrf validation failed", Code: code})
			return
		}

		c.Next()
	}
}

func GetAuthUser(c *gin.Context) *model.AuthUser {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*model.AuthUser); ok {
			return user
		}
	}
	return nil
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func CORSMiddleware(allowedOrigins []string, allowCredentials bool) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				if allowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, "+service.CsrfHeaderName)
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestLogger logs each request with latency and request ID metadata.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.Request.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", requestID)

		path := c.Request.URL.Path
		if rawQuery := c.Request.URL.RawQuery; rawQuery != "" {
			path = path + "?" + rawQuery
		}

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}

		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	}
}
