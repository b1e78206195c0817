package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/eventpulse/backend/internal/config"
	"github.com/eventpulse/backend/internal/db"
	"github.com/eventpulse/backend/internal/handler"
	"github.com/eventpulse/backend/internal/mail"
	"github.com/eventpulse/backend/internal/service"
)

// @title EventPulse API
// @version 1.0
// @description Event publishing platform: auth, events and contact endpoints.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := buildLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	database, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}

	accessTTL, err := time.ParseDuration(cfg.Auth.AccessTTL)
	if err != nil {
		logger.Fatal("invalid JWT_ACCESS_TTL", zap.Error(err))
	}
	refreshTTL, err := time.ParseDuration(cfg.Auth.RefreshTTL)
	if err != nil {
		logger.Fatal("invalid JWT_REFRESH_TTL", zap.Error(err))
	}

	codec, err := service.NewTokenCodec(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, accessTTL, refreshTTL)
	if err != nil {
		logger.Fatal("invalid token config", zap.Error(err))
	}

	csrfCookieCfg, err := service.BuildCookieConfig(cfg.Auth, service.CsrfCookieName, int(config.CsrfTTL.Seconds()))
	if err != nil {
		logger.Fatal("invalid cookie config", zap.Error(err))
	}
	csrfService := service.NewCsrfService(csrfCookieCfg)

	mailer := mail.NewLogMailer(cfg.Mail.FromAddress, logger)

	authService, err := service.NewAuthService(database, database, codec, mailer, logger, cfg)
	if err != nil {
		logger.Fatal("failed to build auth service", zap.Error(err))
	}
	eventService := service.NewEventService(database, logger)
	contactService := service.NewContactService(database, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:         logger,
		AuthService:    authService,
		CsrfService:    csrfService,
		Auth:           handler.NewAuthHandler(authService, csrfService),
		Events:         handler.NewEventHandler(eventService),
		Contact:        handler.NewContactHandler(contactService),
		LoginLimiter:   handler.NewLoginLimiter(5, 15*time.Minute),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	logger.Info("starting server", zap.String("port", cfg.Server.Port))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func buildLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
