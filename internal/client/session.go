package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eventpulse/backend/internal/model"
)

// SessionState names the coordinator's position in its lifecycle.
type SessionState string

const (
	StateInitializing  SessionState = "initializing"
	StateRefreshing    SessionState = "refreshing"
	StateAuthenticated SessionState = "authenticated"
	StateAnonymous     SessionState = "anonymous"
)

// The access token lives 15 minutes; refreshing at 14 leaves a minute of
// margin so an in-flight request never crosses expiry mid-call.
const refreshInterval = 14 * time.Minute

// Session owns the client-side auth lifecycle: it fetches the CSRF token
// once on startup, establishes or denies a session via refresh, and keeps
// the access token fresh on a timer until Close.
type Session struct {
	api    *APIClient
	logger *zap.Logger

	mu    sync.Mutex
	state SessionState
	user  *model.PublicUser

	done     chan struct{}
	stopOnce sync.Once
}

func NewSession(api *APIClient, logger *zap.Logger) *Session {
	return &Session{
		api:    api,
		logger: logger,
		state:  StateInitializing,
		done:   make(chan struct{}),
	}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the identity of the last successful fetch, nil when anonymous.
func (s *Session) User() *model.PublicUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) setState(state SessionState, user *model.PublicUser) {
	s.mu.Lock()
	s.state = state
	s.user = user
	s.mu.Unlock()
}

// Initialize runs the startup sequence: fetch the CSRF token, then attempt a
// refresh with it to restore any surviving session. A CSRF fetch failure is
// terminal for this run since the server rejects unsafe requests without it.
func (s *Session) Initialize(ctx context.Context) error {
	if err := s.api.FetchCsrfToken(ctx); err != nil {
		s.setState(StateAnonymous, nil)
		return err
	}

	s.setState(StateRefreshing, nil)
	if err := s.refresh(ctx); err != nil {
		s.logger.Info("no session restored", zap.Error(err))
		s.setState(StateAnonymous, nil)
		return nil
	}

	return nil
}

// StartAutoRefresh keeps the session alive until Close. Call after a
// successful Initialize or Login.
func (s *Session) StartAutoRefresh(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if s.State() != StateAuthenticated {
					continue
				}
				if err := s.refresh(ctx); err != nil {
					s.logger.Warn("periodic refresh failed", zap.Error(err))
					s.setState(StateAnonymous, nil)
				}
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// refresh is the single refresh path shared by the init sequence and the
// timer, so concurrent callers can at most hit the server-side rotation race.
func (s *Session) refresh(ctx context.Context) error {
	if _, err := s.api.Refresh(ctx); err != nil {
		return err
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		return err
	}

	s.setState(StateAuthenticated, user)
	return nil
}

func (s *Session) Login(ctx context.Context, email, password string) (*model.PublicUser, error) {
	user, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s.setState(StateAuthenticated, user)
	return user, nil
}

// Register creates the account only. No session is established; the caller
// logs in afterwards.
func (s *Session) Register(ctx context.Context, name, email, password string) error {
	return s.api.Register(ctx, name, email, password)
}

// Logout drops local state even when the server call fails: the user asked
// to leave and must never be trapped in a session they cannot end.
func (s *Session) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)
	if err != nil {
		s.logger.Warn("logout request failed", zap.Error(err))
	}
	s.setState(StateAnonymous, nil)
	return nil
}

// Close stops the auto-refresh timer. Safe to call more than once.
func (s *Session) Close() {
	s.stopOnce.Do(func() { close(s.done) })
}
