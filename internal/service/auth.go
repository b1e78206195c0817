package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventpulse/backend/internal/config"
	"github.com/eventpulse/backend/internal/db"
	"github.com/eventpulse/backend/internal/mail"
	"github.com/eventpulse/backend/internal/model"
)

const (
	RefreshCookieName = "refreshToken"

	resetTokenTTL = time.Hour
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrWeakPassword       = errors.New("weak password")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRefreshExpired: the refresh token verified but its window passed.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrRefreshInvalid: the refresh token is malformed or forged.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshRevoked: the token verified but no store record exists. This
	// is what a rotated-then-replayed or logged-out token looks like.
	ErrRefreshRevoked    = errors.New("refresh token not in store")
	ErrUserNotFound      = errors.New("user not found")
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
	ErrForbidden         = errors.New("forbidden")
	ErrMisconfigured     = errors.New("auth config invalid")
)

type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

type AuthService struct {
	users     UserStore
	tokens    RefreshTokenStore
	codec     *TokenCodec
	mailer    mail.Mailer
	logger    *zap.Logger
	clientURL string
	cookieCfg CookieConfig
}

func NewAuthService(users UserStore, tokens RefreshTokenStore, codec *TokenCodec, mailer mail.Mailer, logger *zap.Logger, cfg config.Config) (*AuthService, error) {
	cookieCfg, err := BuildCookieConfig(cfg.Auth, RefreshCookieName, int(codec.RefreshTTL().Seconds()))
	if err != nil {
		return nil, err
	}

	return &AuthService{
		users:     users,
		tokens:    tokens,
		codec:     codec,
		mailer:    mailer,
		logger:    logger,
		clientURL: strings.TrimRight(cfg.Server.ClientURL, "/"),
		cookieCfg: cookieCfg,
	}, nil
}

// BuildCookieConfig parses the configured cookie policy. SameSite=None
// without Secure is rejected outright: browsers drop such cookies silently,
// which breaks refresh in a way that looks like random logouts.
func BuildCookieConfig(cfg config.AuthConfig, name string, maxAge int) (CookieConfig, error) {
	secure, err := parseBool(cfg.CookieSecure, true)
	if err != nil {
		return CookieConfig{}, fmt.Errorf("%w: invalid AUTH_COOKIE_SECURE", ErrMisconfigured)
	}

	sameSite, err := parseSameSite(cfg.CookieSameSite)
	if err != nil {
		return CookieConfig{}, fmt.Errorf("%w: invalid AUTH_COOKIE_SAMESITE", ErrMisconfigured)
	}

	if sameSite == http.SameSiteNoneMode && !secure {
		return CookieConfig{}, fmt.Errorf("%w: SameSite=None requires Secure cookie", ErrMisconfigured)
	}

	path := cfg.CookiePath
	if strings.TrimSpace(path) == "" {
		path = "/"
	}

	return CookieConfig{
		Name:     name,
		Path:     path,
		Domain:   cfg.CookieDomain,
		Secure:   secure,
		SameSite: sameSite,
		MaxAge:   maxAge,
	}, nil
}

func (s *AuthService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

// Register creates a user. No session is established; the caller logs in
// separately.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, name, email, string(hash), model.RoleUser)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	return user, nil
}

// Login fails with the same error whether the email is unknown or the
// password is wrong, so responses do not reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, string, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.issueTokens(ctx, user)
	if err != nil {
		return "", "", nil, err
	}
	return accessToken, refreshToken, user, nil
}

// Refresh rotates the refresh token: the presented token's store record is
// deleted and a new token with a new record is issued. Each refresh token is
// single-use; presenting one twice is indistinguishable from replaying a
// stolen token and is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, string, *model.User, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", "", nil, ErrRefreshInvalid
	}

	userID, err := s.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			// Best-effort cleanup; the record is dead weight either way.
			if delErr := s.tokens.DeleteRefreshToken(ctx, refreshToken); delErr != nil {
				s.logger.Warn("failed to delete expired refresh token", zap.Error(delErr))
			}
			return "", "", nil, ErrRefreshExpired
		}
		return "", "", nil, ErrRefreshInvalid
	}

	record, err := s.tokens.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if db.IsNoRows(err) {
			return "", "", nil, ErrRefreshRevoked
		}
		return "", "", nil, err
	}

	user, err := s.users.GetUserByID(ctx, record.UserID)
	if err != nil {
		if db.IsNoRows(err) {
			if delErr := s.tokens.DeleteRefreshToken(ctx, refreshToken); delErr != nil {
				s.logger.Warn("failed to delete orphaned refresh token", zap.Error(delErr))
			}
			return "", "", nil, ErrUserNotFound
		}
		return "", "", nil, err
	}

	// Delete-then-insert, not in-place update. Losing a concurrent race here
	// only de-authenticates the loser; it never grants access.
	if err := s.tokens.DeleteRefreshTokenForUser(ctx, userID, refreshToken); err != nil {
		return "", "", nil, err
	}

	accessToken, newRefreshToken, err := s.issueTokens(ctx, user)
	if err != nil {
		return "", "", nil, err
	}
	return accessToken, newRefreshToken, user, nil
}

// Logout deletes the store record for the presented token. It never fails
// from the caller's perspective: a user must always be able to exit a
// session, so deletion errors are logged and swallowed.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if strings.TrimSpace(refreshToken) == "" {
		return
	}
	if err := s.tokens.DeleteRefreshToken(ctx, refreshToken); err != nil {
		s.logger.Warn("failed to delete refresh token on logout", zap.Error(err))
	}
}

// VerifyAccess is the pure JWT verification path used by the bearer
// middleware. It does not touch the database.
func (s *AuthService) VerifyAccess(tokenStr string) (*model.AuthUser, error) {
	return s.codec.VerifyAccessToken(tokenStr)
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ForgotPassword stores a hashed single-use reset token with a one-hour
// window and mails the raw token as a link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrUserNotFound
		}
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	resetToken := hex.EncodeToString(raw)

	if err := s.users.SetResetToken(ctx, user.ID, sha256Hex(resetToken), time.Now().Add(resetTokenTTL)); err != nil {
		return err
	}

	resetURL := s.clientURL + "/reset-password/" + resetToken
	return s.mailer.SendPasswordReset(ctx, user.Email, resetURL)
}

// ResetPassword consumes the reset token: after success the hash and expiry
// are cleared, so the link works exactly once.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}

	user, err := s.users.GetUserByResetTokenHash(ctx, sha256Hex(rawToken))
	if err != nil {
		if db.IsNoRows(err) {
			return ErrResetTokenInvalid
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.users.UpdatePassword(ctx, user.ID, string(hash))
}

func (s *AuthService) issueTokens(ctx context.Context, user *model.User) (string, string, error) {
	accessToken, err := s.codec.SignAccessToken(user.ID, user.Name, user.Role)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := s.codec.SignRefreshToken(user.ID)
	if err != nil {
		return "", "", err
	}

	if err := s.tokens.InsertRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// validatePassword enforces the complexity policy before any database I/O:
// at least 8 characters with an upper, a lower, a digit, and a symbol.
func validatePassword(password string) error {
	if len(password) < 8 || len(password) > 128 {
		return ErrWeakPassword
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		return ErrWeakPassword
	}
	return nil
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, err
	}
	return parsed, nil
}

func parseSameSite(value string) (http.SameSite, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return http.SameSiteLaxMode, nil
	}
	switch value {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, ErrInvalidInput
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
