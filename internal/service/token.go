package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/eventpulse/backend/internal/model"
)

var (
	// ErrTokenExpired means the token was well formed and correctly signed
	// but its validity window has passed. Clients may react by refreshing.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid means the token is malformed, forged, or signed with
	// the wrong key. There is no recovery besides re-authentication.
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenCodec signs and verifies access and refresh tokens. Access and
// refresh tokens use distinct secrets so compromising one signing key does
// not allow forging the other kind.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

type accessClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	jwt.RegisteredClaims
}

func NewTokenCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenCodec, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET and REFRESH_TOKEN_SECRET are required", ErrMisconfigured)
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrMisconfigured)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token TTLs must be positive", ErrMisconfigured)
	}

	return &TokenCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

func (c *TokenCodec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *TokenCodec) SignAccessToken(userID, name, role string) (string, error) {
	now := time.Now()
	claims := accessClaims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.accessSecret)
}

func (c *TokenCodec) VerifyAccessToken(tokenStr string) (*model.AuthUser, error) {
	claims := &accessClaims{}
	if err := c.verify(tokenStr, claims, c.accessSecret); err != nil {
		return nil, err
	}
	return &model.AuthUser{
		ID:   claims.Subject,
		Name: claims.Name,
		Role: claims.Role,
	}, nil
}

func (c *TokenCodec) SignRefreshToken(userID string) (string, error) {
	now := time.Now()
	// The jti keeps every refresh token unique even when two are minted in
	// the same second. The store is keyed by exact token value, so two
	// identical tokens would collapse into one record and break rotation.
	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.refreshSecret)
}

// VerifyRefreshToken checks signature and expiry only. Whether the token is
// still live is the refresh-token store's call, not the codec's.
func (c *TokenCodec) VerifyRefreshToken(tokenStr string) (string, error) {
	claims := &refreshClaims{}
	if err := c.verify(tokenStr, claims, c.refreshSecret); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (c *TokenCodec) verify(tokenStr string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

// sha256Hex is the one-way digest used for CSRF tokens and password-reset
// tokens. Validation recomputes the digest and compares.
func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
