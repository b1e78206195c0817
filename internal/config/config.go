package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	Mail     MailConfig
}

type ServerConfig struct {
	Port           string
	Environment    string
	ClientURL      string
	AllowedOrigins []string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type AuthConfig struct {
	AccessSecret   string
	RefreshSecret  string
	AccessTTL      string
	RefreshTTL     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   string
	CookieSameSite string
}

type MailConfig struct {
	FromAddress string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:           getenv("PORT", "5000"),
			Environment:    getenv("ENVIRONMENT", "development"),
			ClientURL:      getenv("CLIENT_URL", "http://localhost:5173"),
			AllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Auth: AuthConfig{
			AccessSecret:   os.Getenv("JWT_SECRET"),
			RefreshSecret:  os.Getenv("REFRESH_TOKEN_SECRET"),
			AccessTTL:      getenv("JWT_ACCESS_TTL", "15m"),
			RefreshTTL:     getenv("JWT_REFRESH_TTL", "168h"),
			CookieDomain:   os.Getenv("AUTH_COOKIE_DOMAIN"),
			CookiePath:     getenv("AUTH_COOKIE_PATH", "/"),
			CookieSecure:   getenv("AUTH_COOKIE_SECURE", "true"),
			CookieSameSite: getenv("AUTH_COOKIE_SAMESITE", "none"),
		},
		Mail: MailConfig{
			FromAddress: getenv("EMAIL_FROM", "no-reply@eventpulse.local"),
		},
	}
}

// CsrfTTL is the lifetime of the CSRF secret cookie.
const CsrfTTL = 24 * time.Hour

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
