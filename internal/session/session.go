// Package session holds the authenticated user's token and profile.
//
// A Session is created once per process and handed to whatever needs it (the
// API client, the CLI commands); there is no package level state. When a
// Persister is attached, Login and UpdateUser write through to it, Logout
// clears it and Hydrate restores it on start.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"conti/internal/core"
)

// State is what gets persisted between runs.
type State struct {
	Token string
	User  core.User
}

// Persister stores the session outside the process.
type Persister interface {
	SaveSession(ctx context.Context, s State) error
	// LoadSession returns ErrNoSession when nothing is stored.
	LoadSession(ctx context.Context) (State, error)
	ClearSession(ctx context.Context) error
}

var (
	ErrNoSession    = errors.New("no stored session")
	ErrEmptyToken   = errors.New("empty token")
	ErrTokenExpired = errors.New("token expired")
)

// Session is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	token string
	user  core.User
	auth  bool

	store Persister
	now   func() time.Time
}

// New returns an unauthenticated session. store may be nil.
func New(store Persister) *Session {
	return &Session{store: store, now: time.Now}
}

// Login records a successful authentication. The user profile is read from
// the token claims when user is the zero value.
func (s *Session) Login(ctx context.Context, token string, user core.User) error {
	if token == "" {
		return ErrEmptyToken
	}
	if user == (core.User{}) {
		claims, err := DecodeClaims(token)
		if err != nil {
			return fmt.Errorf("decode token: %w", err)
		}
		user = claims.User
	}

	s.mu.Lock()
	s.token, s.user, s.auth = token, user, true
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveSession(ctx, State{Token: token, User: user}); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	slog.InfoContext(ctx, "Session started", "username", user.Username)
	return nil
}

// Logout drops the in-memory state first so callers observe it even if the
// persisted copy cannot be cleared.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	wasAuth := s.auth
	s.token, s.user, s.auth = "", core.User{}, false
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.ClearSession(ctx); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
	}
	if wasAuth {
		slog.InfoContext(ctx, "Session ended")
	}
	return nil
}

// UpdateUser replaces the profile of an authenticated session.
func (s *Session) UpdateUser(ctx context.Context, user core.User) error {
	s.mu.Lock()
	if !s.auth {
		s.mu.Unlock()
		return ErrNoSession
	}
	s.user = user
	token := s.token
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveSession(ctx, State{Token: token, User: user}); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	return nil
}

// Hydrate restores a stored session. A missing session is not an error; an
// expired token is cleared and reported as ErrTokenExpired.
func (s *Session) Hydrate(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	st, err := s.store.LoadSession(ctx)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if st.Token == "" {
		return nil
	}
	if Expired(st.Token, s.now()) {
		slog.WarnContext(ctx, "Stored session token expired, clearing")
		if err := s.store.ClearSession(ctx); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		return ErrTokenExpired
	}

	s.mu.Lock()
	s.token, s.user, s.auth = st.Token, st.User, true
	s.mu.Unlock()
	return nil
}

// Token returns the bearer token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() (core.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.auth
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}
