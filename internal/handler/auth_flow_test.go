package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventpulse/backend/internal/config"
	"github.com/eventpulse/backend/internal/mail"
	"github.com/eventpulse/backend/internal/model"
	"github.com/eventpulse/backend/internal/service"
)

// In-memory stores standing in for the postgres layer. Misses surface as
// pgx.ErrNoRows, duplicates as a unique-violation PgError.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func (s *fakeUserStore) CreateUser(_ context.Context, name, email, passwordHash, role string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	user := &model.User{ID: uuid.NewString(), Name: name, Email: email, PasswordHash: passwordHash, Role: role}
	s.users[user.ID] = user
	return user, nil
}

func (s *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeUserStore) GetUserByID(_ context.Context, userID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeUserStore) GetUserByResetTokenHash(_ context.Context, tokenHash string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeUserStore) SetResetToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.ResetTokenHash = &tokenHash
		u.ResetTokenExpires = &expiresAt
		return nil
	}
	return pgx.ErrNoRows
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.PasswordHash = passwordHash
		u.ResetTokenHash = nil
		u.ResetTokenExpires = nil
		return nil
	}
	return pgx.ErrNoRows
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*model.RefreshToken
}

func (s *fakeTokenStore) InsertRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = &model.RefreshToken{Token: token, UserID: userID, CreatedAt: time.Now()}
	return nil
}

func (s *fakeTokenStore) GetRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.tokens[token]; ok {
		copied := *record
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeTokenStore) DeleteRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *fakeTokenStore) DeleteRefreshTokenForUser(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.tokens[token]; ok && record.UserID == userID {
		delete(s.tokens, token)
	}
	return nil
}

type fakeEventStore struct {
	mu     sync.Mutex
	events map[string]*model.Event
}

func (s *fakeEventStore) CreateEvent(_ context.Context, ownerID string, req model.CreateEventRequest) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event := &model.Event{
		ID: uuid.NewString(), OwnerID: ownerID, Title: req.Title, Category: req.Category,
		StartsAt: req.StartsAt, Published: req.Published,
	}
	s.events[event.ID] = event
	return event, nil
}

func (s *fakeEventStore) GetEvent(_ context.Context, eventID string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event, ok := s.events[eventID]; ok {
		copied := *event
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeEventStore) ListPublishedEvents(_ context.Context, _ model.EventFilter) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Event{}
	for _, event := range s.events {
		if event.Published {
			out = append(out, *event)
		}
	}
	return out, nil
}

func (s *fakeEventStore) ListEventsByOwner(_ context.Context, ownerID string) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Event{}
	for _, event := range s.events {
		if event.OwnerID == ownerID {
			out = append(out, *event)
		}
	}
	return out, nil
}

func (s *fakeEventStore) UpdateEvent(_ context.Context, eventID string, req model.UpdateEventRequest) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	event.Title = req.Title
	event.StartsAt = req.StartsAt
	event.Published = req.Published
	copied := *event
	return &copied, nil
}

func (s *fakeEventStore) DeleteEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, eventID)
	return nil
}

type fakeContactStore struct {
	mu       sync.Mutex
	messages []model.ContactMessage
}

func (s *fakeContactStore) InsertContactMessage(_ context.Context, req model.ContactRequest) (*model.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := model.ContactMessage{
		ID:        int64(len(s.messages) + 1),
		Name:      req.Name,
		Email:     req.Email,
		Subject:   req.Subject,
		Body:      req.Body,
		CreatedAt: time.Now(),
	}
	s.messages = append(s.messages, msg)
	return &msg, nil
}

func (s *fakeContactStore) ListContactMessages(_ context.Context) ([]model.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ContactMessage{}, s.messages...), nil
}

func testConfig() config.Config {
	cfg := config.Load()
	cfg.Auth.AccessSecret = "access-secret-for-tests"
	cfg.Auth.RefreshSecret = "refresh-secret-for-tests"
	// httptest serves plain http; the jar drops Secure cookies there.
	cfg.Auth.CookieSecure = "false"
	cfg.Auth.CookieSameSite = "lax"
	return cfg
}

func newTestRouter(t *testing.T, accessTTL time.Duration, loginAttempts int) *gin.Engine {
	t.Helper()
	router, _ := newTestRouterWithUsers(t, accessTTL, loginAttempts)
	return router
}

func newTestRouterWithUsers(t *testing.T, accessTTL time.Duration, loginAttempts int) (*gin.Engine, *fakeUserStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	logger := zap.NewNop()

	codec, err := service.NewTokenCodec(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, accessTTL, 168*time.Hour)
	require.NoError(t, err)

	csrfCookieCfg, err := service.BuildCookieConfig(cfg.Auth, service.CsrfCookieName, int(config.CsrfTTL.Seconds()))
	require.NoError(t, err)
	csrfService := service.NewCsrfService(csrfCookieCfg)

	users := &fakeUserStore{users: make(map[string]*model.User)}
	tokens := &fakeTokenStore{tokens: make(map[string]*model.RefreshToken)}

	authService, err := service.NewAuthService(users, tokens, codec, mail.NewLogMailer("test@eventpulse.local", logger), logger, cfg)
	require.NoError(t, err)

	eventService := service.NewEventService(&fakeEventStore{events: make(map[string]*model.Event)}, logger)
	contactService := service.NewContactService(&fakeContactStore{}, logger)

	router := NewRouter(RouterConfig{
		Logger:         logger,
		AuthService:    authService,
		CsrfService:    csrfService,
		Auth:           NewAuthHandler(authService, csrfService),
		Events:         NewEventHandler(eventService),
		Contact:        NewContactHandler(contactService),
		LoginLimiter:   NewLoginLimiter(loginAttempts, 15*time.Minute),
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	return router, users
}

// browser drives the API the way a real client does: cookies in a jar, the
// CSRF token attached to every unsafe request.
type browser struct {
	t         *testing.T
	base      string
	client    *http.Client
	csrfToken string
	bearer    string
}

func newBrowser(t *testing.T, base string) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: base, client: &http.Client{Jar: jar}}
}

func (b *browser) do(method, path string, body any) (*http.Response, map[string]any) {
	b.t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, b.base+path, reader)
	require.NoError(b.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && b.csrfToken != "" {
		req.Header.Set(service.CsrfHeaderName, b.csrfToken)
	}
	if b.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+b.bearer)
	}

	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	decoded := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (b *browser) fetchCsrf() {
	b.t.Helper()
	resp, body := b.do(http.MethodGet, "/api/auth/csrf-token", nil)
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	b.csrfToken, _ = body["csrfToken"].(string)
	require.NotEmpty(b.t, b.csrfToken)
}

const testPassword = "Sup3r$ecret"

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	return parsed
}

func registerBody(email string) map[string]string {
	return map[string]string{"name": "Ada", "email": email, "password": testPassword}
}

func loginBody(email, password string) map[string]string {
	return map[string]string{"email": email, "password": password}
}

func TestCsrfGuard(t *testing.T) {
	server := httptest.NewServer(newTestRouter(t, 15*time.Minute, 5))
	defer server.Close()
	b := newBrowser(t, server.URL)

	// Unsafe request with no CSRF material at all.
	resp, body := b.do(http.MethodPost, "/api/auth/register", registerBody("ada@example.com"))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "CSRF_SECRET_MISSING", body["code"])

	// Safe methods never need it.
	resp, _ = b.do(http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b.fetchCsrf()

	// Cookie present but header missing.
	withToken := b.csrfToken
	b.csrfToken = ""
	resp, body = b.do(http.MethodPost, "/api/auth/register", registerBody("ada@example.com"))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "CSRF_TOKEN_MISSING", body["code"])

	// Header not matching the cookie-borne secret.
	b.csrfToken = "deadbeef"
	resp, body = b.do(http.MethodPost, "/api/auth/register", registerBody("ada@example.com"))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "CSRF_TOKEN_MISMATCH", body["code"])

	// The real pair passes.
	b.csrfToken = withToken
	resp, _ = b.do(http.MethodPost, "/api/auth/register", registerBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCsrfTokenIsStableWhileCookieLives(t *testing.T) {
	server := httptest.NewServer(newTestRouter(t, 15*time.Minute, 5))
	defer server.Close()
	b := newBrowser(t, server.URL)

	b.fetchCsrf()
	first := b.csrfToken
	b.fetchCsrf()
	require.Equal(t, first, b.csrfToken)
}

func TestAuthLifecycle(t *testing.T) {
	server := httptest.NewServer(newTestRouter(t, 15*time.Minute, 5))
	defer server.Close()
	b := newBrowser(t, server.URL)
	b.fetchCsrf()

	resp, _ := b.do(http.MethodPost, "/api/auth/register", registerBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Duplicate registration.
	resp, body := b.do(http.MethodPost, "/api/auth/register", registerBody("ada@example.com"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "DUPLICATE_EMAIL", body["code"])

	// Registration established no session.
	resp, body = b.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "TOKEN_MISSING", body["code"])

	resp, body = b.do(http.MethodPost, "/api/auth/login", loginBody("ada@example.com", testPassword))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b.bearer, _ = body["accessToken"].(string)
	require.NotEmpty(t, b.bearer)

	resp, body = b.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ada@example.com", body["email"])

	// Rotate: a new access token comes back and the old refresh cookie dies.
	resp, body = b.do(http.MethodPost, "/api/auth/refresh-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated, _ := body["accessToken"].(string)
	require.NotEmpty(t, rotated)
	b.bearer = rotated

	// Logout is idempotent: with and without a live cookie it reports success.
	resp, body = b.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "logged_out", body["status"])

	resp, body = b.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "logged_out", body["status"])

	// The session is gone: refresh now fails.
	resp, _ = b.do(http.MethodPost, "/api/auth/refresh-token", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRefreshTokenReplayIsRejected(t *testing.T) {
	server := httptest.NewServer(newTestRouter(t, 15*time.Minute, 5))
	defer server.Close()
	b := newBrowser(t, server.URL)
	b.fetchCsrf()

	resp, _ := b.do(http.MethodPost, "/api/auth/register", registerBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = b.do(http.MethodPost, "/api/auth/login", loginBody("ada@example.com", testPassword))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stolen string
	for _, cookie := range b.client.Jar.Cookies(mustParseURL(t, server.URL)) {
		if cookie.Name == service.RefreshCookieName {
			stolen = cookie.Value
		}
	}
	require.NotEmpty(t, stolen)

	resp, _ = b.do(http.MethodPost, "/api/auth/refresh-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Replay the rotated-out token by hand.
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/auth/refresh-token", nil)
	require.NoError(t, err)
	req.Header.Set(service.CsrfHeaderName, b.csrfToken)
	for _, cookie := range b.client.Jar.Cookies(mustParseURL(t, server.URL)) {
		if cookie.Name != service.RefreshCookieName {
			req.AddCookie(cookie)
		}
	}
	req.AddCookie(&http.Cookie{Name: service.RefreshCookieName, Value: stolen})

	replayResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer replayResp.Body.Close()

	require.Equal(t, http.StatusForbidden, replayResp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(replayResp.Body).Decode(&body))
	require.Equal(t, "INVALID_TOKEN_DB", body["code"])
}

func TestLoginRateLimit(t *testing.T) {
	server := httptest.NewServer(newTestRouter(t, 15*time.Minute, 5))
	defer server.Close()
	b := newBrowser(t, server.URL)
	b.fetchCsrf()

	// The limit counts attempts, not failures: the 6th within the window is
	// rejected regardless of credential correctness.
	for i := 0; i < 5; i++ {
		resp, _ := b.do(http.MethodPost, "/api/auth/login", loginBody("nobody@example.com", "Wr0ng$pass"))
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}

	resp, body := b.do(http.MethodPost, "/api/auth/login", loginBody("nobody@example.com", "Wr0ng$pass"))
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "RATE_LIMITED", body["code"])
}

func TestExpiredAccessTokenCode(t *testing.T) {
	server := httptest.NewServer(newTestRouter(t, time.Nanosecond, 5))
	defer server.Close()
	b := newBrowser(t, server.URL)
	b.fetchCsrf()

	resp, _ := b.do(http.MethodPost, "/api/auth/register", registerBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, body := b.do(http.MethodPost, "/api/auth/login", loginBody("ada@example.com", testPassword))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b.bearer, _ = body["accessToken"].(string)

	time.Sleep(5 * time.Millisecond)

	// Expired is a distinct code from invalid so clients know to refresh.
	resp, body = b.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "TOKEN_EXPIRED", body["code"])

	b.bearer = "garbage"
	resp, body = b.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "TOKEN_INVALID", body["code"])
}

func TestContactSubmissionAndAdminList(t *testing.T) {
	router, users := newTestRouterWithUsers(t, 15*time.Minute, 5)
	server := httptest.NewServer(router)
	defer server.Close()
	b := newBrowser(t, server.URL)
	b.fetchCsrf()

	// Public submission needs no account, only the CSRF pair.
	resp, _ := b.do(http.MethodPost, "/api/contact", map[string]string{
		"name": "Visitor", "email": "visitor@example.com", "subject": "Hi", "body": "Question about tickets",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := b.do(http.MethodPost, "/api/contact", map[string]string{"name": "", "email": "x", "body": ""})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "INVALID_REQUEST", body["code"])

	// The inbox is admin-only.
	resp, _ = b.do(http.MethodGet, "/api/contact", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = b.do(http.MethodPost, "/api/auth/register", registerBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, body = b.do(http.MethodPost, "/api/auth/login", loginBody("ada@example.com", testPassword))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b.bearer, _ = body["accessToken"].(string)

	resp, body = b.do(http.MethodGet, "/api/contact", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "FORBIDDEN", body["code"])

	// Promote and re-login so the token carries the admin role.
	users.mu.Lock()
	for _, u := range users.users {
		u.Role = model.RoleAdmin
	}
	users.mu.Unlock()

	resp, body = b.do(http.MethodPost, "/api/auth/login", loginBody("ada@example.com", testPassword))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b.bearer, _ = body["accessToken"].(string)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/contact", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+b.bearer)
	listResp, err := b.client.Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var messages []map[string]any
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&messages))
	require.Len(t, messages, 1)
	require.Equal(t, "Visitor", messages[0]["name"])
}

func TestEventOwnershipOverHTTP(t *testing.T) {
	server := httptest.NewServer(newTestRouter(t, 15*time.Minute, 5))
	defer server.Close()

	login := func(email string) *browser {
		b := newBrowser(t, server.URL)
		b.fetchCsrf()
		resp, _ := b.do(http.MethodPost, "/api/auth/register", map[string]string{"name": "U", "email": email, "password": testPassword})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp, body := b.do(http.MethodPost, "/api/auth/login", loginBody(email, testPassword))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		b.bearer, _ = body["accessToken"].(string)
		return b
	}

	owner := login("owner@example.com")
	other := login("other@example.com")

	resp, body := owner.do(http.MethodPost, "/api/events", map[string]any{
		"title":     "Concert",
		"startsAt":  time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"published": false,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	eventID, _ := body["id"].(string)
	require.NotEmpty(t, eventID)

	// The draft exists only for its owner.
	resp, _ = owner.do(http.MethodGet, "/api/events/"+eventID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = other.do(http.MethodGet, "/api/events/"+eventID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = other.do(http.MethodPut, "/api/events/"+eventID, map[string]any{
		"title":    "Hijacked",
		"startsAt": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "FORBIDDEN", body["code"])

	resp, _ = owner.do(http.MethodDelete, "/api/events/"+eventID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
