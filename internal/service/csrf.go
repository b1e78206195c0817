package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

// Double-submit CSRF: a random secret lives in an HTTP-only cookie, and the
// client sends hash(secret) in a header on unsafe requests. An attacker can
// make the browser send the cookie but cannot read it, so it cannot compute
// the matching header value.

const (
	CsrfCookieName = "csrfSecret"
	CsrfHeaderName = "x-csrf-token"
)

var (
	ErrCsrfSecretMissing = errors.New("csrf secret missing")
	ErrCsrfTokenMissing  = errors.New("csrf token missing")
	ErrCsrfMismatch      = errors.New("csrf token mismatch")
)

type CsrfService struct {
	cookieCfg CookieConfig
}

func NewCsrfService(cookieCfg CookieConfig) *CsrfService {
	cookieCfg.Name = CsrfCookieName
	return &CsrfService{cookieCfg: cookieCfg}
}

func (s *CsrfService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

// GenerateSecret returns a fresh 256-bit secret, hex encoded.
func (s *CsrfService) GenerateSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate csrf secret: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// TokenFor derives the client-visible token from a secret. Deterministic:
// repeated calls on the same secret yield the same token.
func (s *CsrfService) TokenFor(secret string) string {
	return sha256Hex(secret)
}

func (s *CsrfService) Validate(secret, token string) error {
	if secret == "" {
		return ErrCsrfSecretMissing
	}
	if token == "" {
		return ErrCsrfTokenMissing
	}
	expected := s.TokenFor(secret)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return ErrCsrfMismatch
	}
	return nil
}
