package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventpulse/backend/internal/model"
	"github.com/eventpulse/backend/internal/service"
)

type RouterConfig struct {
	Logger         *zap.Logger
	AuthService    *service.AuthService
	CsrfService    *service.CsrfService
	Auth           *AuthHandler
	Events         *EventHandler
	Contact        *ContactHandler
	LoginLimiter   *LoginLimiter
	AllowedOrigins []string
}

// NewRouter wires all routes. The CSRF guard covers the whole /api group;
// safe methods pass through it untouched.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		cfg.Logger.Error("panic recovered", zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Internal Server Error"})
	}))
	router.Use(RequestLogger(cfg.Logger))
	router.Use(CORSMiddleware(cfg.AllowedOrigins, true))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.StatusResponse{Status: "ok"})
	})

	requireAuth := AuthMiddleware(cfg.AuthService)
	optionalAuth := OptionalAuthMiddleware(cfg.AuthService)

	api := router.Group("/api", CsrfMiddleware(cfg.CsrfService))

	auth := api.Group("/auth")
	auth.POST("/register", cfg.Auth.Register)
	auth.POST("/login", cfg.LoginLimiter.Handler(), cfg.Auth.Login)
	auth.POST("/refresh-token", cfg.Auth.Refresh)
	auth.POST("/logout", cfg.Auth.Logout)
	auth.GET("/me", requireAuth, cfg.Auth.Me)
	auth.GET("/csrf-token", cfg.Auth.CsrfToken)
	auth.POST("/forgot-password", cfg.Auth.ForgotPassword)
	auth.POST("/reset-password/:token", cfg.Auth.ResetPassword)

	events := api.Group("/events")
	events.GET("", cfg.Events.List)
	events.GET("/mine", requireAuth, cfg.Events.ListMine)
	events.GET("/:id", optionalAuth, cfg.Events.Get)
	events.POST("", requireAuth, cfg.Events.Create)
	events.PUT("/:id", requireAuth, cfg.Events.Update)
	events.DELETE("/:id", requireAuth, cfg.Events.Delete)

	contact := api.Group("/contact")
	contact.POST("", cfg.Contact.Submit)
	contact.GET("", requireAuth, RequireRole(model.RoleAdmin), cfg.Contact.List)

	return router
}
