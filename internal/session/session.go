// Package session holds the authentication state of one dashboard client.
//
// A State is created per client (a browser session or the terminal) and
// passed to whatever needs the token; there is no process-wide session.
package session

import (
	"context"
	"sync"
	"time"

	"trading_dashboard/internal/auth"
	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/logger"
	"trading_dashboard/internal/models"
)

// TokenStore persists the access token of one client.
type TokenStore interface {
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// UserResolver looks up the user a token belongs to.
type UserResolver interface {
	CurrentUser(ctx context.Context, token string) (*models.User, error)
}

// Snapshot is an immutable copy of the session.
type Snapshot struct {
	Token string
	User  *models.User
}

// IsAuthenticated reports whether the snapshot carries a token.
func (s Snapshot) IsAuthenticated() bool {
	return s.Token != ""
}

// State is the token and user identity of one client.
// The zero value is not usable; call New.
type State struct {
	store    TokenStore
	resolver UserResolver
	logger   *logger.Logger
	now      func() time.Time

	mu    sync.RWMutex
	token string
	user  *models.User
}

// New creates an anonymous session.
func New(store TokenStore, resolver UserResolver, log *logger.Logger) *State {
	if log == nil {
		log = logger.NewSilent()
	}
	return &State{
		store:    store,
		resolver: resolver,
		logger:   log,
		now:      time.Now,
	}
}

// Restore loads a persisted token and resolves its user. Without a stored
// token the session stays anonymous and no request is made. If the token
// cannot be loaded, has expired, or the user lookup fails for any reason,
// the stored token is discarded and the session is reset.
func (s *State) Restore(ctx context.Context) error {
	token, err := s.store.LoadToken(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("stored token unreadable, discarding")
		return s.reset(ctx)
	}
	if token == "" {
		s.set("", nil)
		return nil
	}

	if auth.TokenExpired(token, s.now()) {
		s.logger.Debug().Msg("stored token expired, discarding")
		return s.reset(ctx)
	}

	user, err := s.resolver.CurrentUser(ctx, token)
	if err != nil {
		s.logger.Info().Err(err).Msg("stored token rejected, discarding")
		return s.reset(ctx)
	}

	s.set(token, user)
	return nil
}

// Login installs and persists token. When user is nil it is resolved with
// the new token; if that lookup fails for any reason the session is logged
// out entirely and the lookup error is returned.
func (s *State) Login(ctx context.Context, token string, user *models.User) error {
	if token == "" {
		return apperrors.Unauthorized("empty access token")
	}

	if err := s.store.SaveToken(ctx, token); err != nil {
		return apperrors.Wrap(apperrors.ErrUnexpected, "Could not store the session.", err)
	}
	s.set(token, user)

	if user != nil {
		return nil
	}

	resolved, err := s.resolver.CurrentUser(ctx, token)
	if err != nil {
		s.logger.Info().Err(err).Msg("user lookup failed during login, logging out")
		// A concurrent Login has replaced this token; leave it alone.
		if s.Token() != token {
			return err
		}
		if lerr := s.Logout(ctx); lerr != nil {
			return lerr
		}
		return err
	}

	s.mu.Lock()
	// A concurrent Logout or Login wins over this late resolution.
	if s.token == token {
		s.user = resolved
	}
	s.mu.Unlock()
	return nil
}

// Logout clears the session and the persisted token.
func (s *State) Logout(ctx context.Context) error {
	return s.reset(ctx)
}

// Token returns the current token, or "".
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the current user, or nil.
func (s *State) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return nil
	}
	return s.user
}

// IsAuthenticated reports whether a token is installed.
func (s *State) IsAuthenticated() bool {
	return s.Token() != ""
}

// Snapshot returns a consistent copy of token and user.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Token: s.token}
	if s.token != "" && s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *State) set(token string, user *models.User) {
	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()
}

func (s *State) reset(ctx context.Context) error {
	s.set("", nil)
	if err := s.store.ClearToken(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrUnexpected, "Could not clear the session.", err)
	}
	return nil
}
