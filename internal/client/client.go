// HTTP client for the EventPulse API.
//
// The client mirrors what a browser session does: the refresh-token and
// CSRF-secret cookies live in a cookie jar, the access token is held in
// memory only, and every unsafe request carries the x-csrf-token header.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/eventpulse/backend/internal/model"
	"github.com/eventpulse/backend/internal/service"
)

const requestTimeout = 8 * time.Second

// APIError carries the status and machine code of a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status %d code %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// ErrSessionExpired is returned when a request failed with an expired access
// token and the single silent refresh attempt could not recover it.
var ErrSessionExpired = errors.New("session expired")

type APIClient struct {
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	csrfToken   string
}

func NewAPIClient(baseURL string) (*APIClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Jar:     jar,
		},
	}, nil
}

// AccessToken returns the currently held access token, empty when anonymous.
func (c *APIClient) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *APIClient) setAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *APIClient) csrf() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csrfToken
}

// FetchCsrfToken retrieves the CSRF token and lets the jar capture the secret
// cookie. Must succeed before any unsafe request is attempted.
func (c *APIClient) FetchCsrfToken(ctx context.Context) error {
	var resp model.CsrfTokenResponse
	if err := c.call(ctx, http.MethodGet, "/api/auth/csrf-token", nil, &resp); err != nil {
		return err
	}

	c.mu.Lock()
	c.csrfToken = resp.CsrfToken
	c.mu.Unlock()
	return nil
}

func (c *APIClient) Register(ctx context.Context, name, email, password string) error {
	req := model.RegisterRequest{Name: name, Email: email, Password: password}
	return c.call(ctx, http.MethodPost, "/api/auth/register", req, nil)
}

func (c *APIClient) Login(ctx context.Context, email, password string) (*model.PublicUser, error) {
	req := model.LoginRequest{Email: email, Password: password}
	var resp model.AuthResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}

	c.setAccessToken(resp.AccessToken)
	return &resp.User, nil
}

// Refresh rotates the refresh-token cookie and replaces the access token.
// On failure the held access token is dropped: the session is gone either way.
func (c *APIClient) Refresh(ctx context.Context) (string, error) {
	var resp model.RefreshResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/refresh-token", nil, &resp); err != nil {
		c.setAccessToken("")
		return "", err
	}

	c.setAccessToken(resp.AccessToken)
	return resp.UserID, nil
}

func (c *APIClient) Logout(ctx context.Context) error {
	err := c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.setAccessToken("")
	return err
}

func (c *APIClient) Me(ctx context.Context) (*model.PublicUser, error) {
	var user model.PublicUser
	if err := c.Do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Do performs an authenticated request. When the server reports the access
// token as expired (code TOKEN_EXPIRED, not a bare 401) it refreshes once,
// silently, and retries with the new token. A second failure surfaces as
// ErrSessionExpired instead of looping.
func (c *APIClient) Do(ctx context.Context, method, path string, body, out any) error {
	err := c.call(ctx, method, path, body, out)
	if !isTokenExpired(err) {
		return err
	}

	if _, refreshErr := c.Refresh(ctx); refreshErr != nil {
		return ErrSessionExpired
	}

	err = c.call(ctx, method, path, body, out)
	if isTokenExpired(err) {
		return ErrSessionExpired
	}
	return err
}

func (c *APIClient) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method != http.MethodGet && method != http.MethodHead {
		if csrf := c.csrf(); csrf != "" {
			req.Header.Set(service.CsrfHeaderName, csrf)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp model.ErrorResponse
		if json.Unmarshal(raw, &errResp) == nil {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Error
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func isTokenExpired(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == "TOKEN_EXPIRED"
}
