// Package middleware provides HTTP middleware for the dashboard.
package middleware

import (
	"context"
	"net/http"

	"trading_dashboard/internal/auth"
	"trading_dashboard/internal/logger"
	"trading_dashboard/internal/models"
	"trading_dashboard/internal/repository"
	"trading_dashboard/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// SessionContextKey is the context key for the client's session state.
	SessionContextKey ContextKey = "session"

	// SessionIDContextKey is the context key for the browser session id.
	SessionIDContextKey ContextKey = "session_id"

	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session_id"
)

// AuthMiddleware binds each browser session to a session.State whose token
// lives in client storage under the browser session id.
type AuthMiddleware struct {
	sessions *auth.SessionManager
	storage  *repository.ClientStorageRepository
	resolver session.UserResolver
	logger   *logger.Logger
	secure   bool
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(sm *auth.SessionManager, storage *repository.ClientStorageRepository, resolver session.UserResolver, log *logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.NewSilent()
	}
	return &AuthMiddleware{
		sessions: sm,
		storage:  storage,
		resolver: resolver,
		logger:   log.Component("auth"),
	}
}

// WithSecureCookies marks session cookies Secure.
func (m *AuthMiddleware) WithSecureCookies(secure bool) *AuthMiddleware {
	m.secure = secure
	return m
}

// LoadSession restores the session of the browser session cookie, if any.
// It does not require authentication.
func (m *AuthMiddleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if _, err := m.sessions.Validate(cookie.Value); err != nil {
			ClearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		state := m.newState(cookie.Value)
		if err := state.Restore(r.Context()); err != nil {
			m.logger.Error().Err(err).Msg("restoring session")
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), cookie.Value, state)))
	})
}

// Start returns the session state of the request, creating a browser
// session and setting its cookie when there is none yet.
func (m *AuthMiddleware) Start(w http.ResponseWriter, r *http.Request) (*session.State, *http.Request, error) {
	if state := GetSession(r); state != nil {
		return state, r, nil
	}
	return m.create(w, r)
}

// Renew discards the browser session of the request, if any, and starts a
// fresh one with a new id. Login calls it so a session id issued before
// authentication never carries a token.
func (m *AuthMiddleware) Renew(w http.ResponseWriter, r *http.Request) (*session.State, *http.Request, error) {
	if id := GetSessionID(r); id != "" {
		if state := GetSession(r); state != nil {
			if err := state.Logout(r.Context()); err != nil {
				m.logger.Warn().Err(err).Msg("logging out replaced session")
			}
		}
		if err := m.discard(r.Context(), id); err != nil {
			return nil, r, err
		}
	}
	return m.create(w, r)
}

// End logs the session out and removes the browser session.
func (m *AuthMiddleware) End(w http.ResponseWriter, r *http.Request) error {
	defer ClearSessionCookie(w)

	id := GetSessionID(r)
	if id == "" {
		return nil
	}
	if state := GetSession(r); state != nil {
		if err := state.Logout(r.Context()); err != nil {
			return err
		}
	}
	return m.discard(r.Context(), id)
}

func (m *AuthMiddleware) create(w http.ResponseWriter, r *http.Request) (*session.State, *http.Request, error) {
	sess, err := m.sessions.Create()
	if err != nil {
		return nil, r, err
	}
	m.setCookie(w, sess.ID)

	state := m.newState(sess.ID)
	return state, r.WithContext(withSession(r.Context(), sess.ID, state)), nil
}

// discard removes a browser session and everything stored under it.
func (m *AuthMiddleware) discard(ctx context.Context, id string) error {
	if err := m.storage.DeleteScope(ctx, id); err != nil {
		return err
	}
	return m.sessions.Delete(id)
}

// RequireAuth is middleware that requires an access token.
// Redirects to the login page if there is none.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAuthenticated(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthAPI is RequireAuth for JSON endpoints.
func (m *AuthMiddleware) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAuthenticated(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RedirectIfAuthenticated redirects to dashboard if already logged in.
// Used for login/register pages.
func (m *AuthMiddleware) RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsAuthenticated(r) {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) newState(sessionID string) *session.State {
	return session.New(m.storage.TokenStore(sessionID), m.resolver, m.logger)
}

func (m *AuthMiddleware) setCookie(w http.ResponseWriter, id string) {
	SetSessionCookie(w, id, int(m.sessions.Duration().Seconds()), m.secure)
}

func withSession(ctx context.Context, id string, state *session.State) context.Context {
	ctx = context.WithValue(ctx, SessionIDContextKey, id)
	return context.WithValue(ctx, SessionContextKey, state)
}

// GetSession retrieves the session state from the request context.
// Returns nil if the request has no browser session.
func GetSession(r *http.Request) *session.State {
	state, ok := r.Context().Value(SessionContextKey).(*session.State)
	if !ok {
		return nil
	}
	return state
}

// GetSessionID returns the browser session id, or "".
func GetSessionID(r *http.Request) string {
	id, _ := r.Context().Value(SessionIDContextKey).(string)
	return id
}

// GetUser retrieves the authenticated user from the request context.
// Returns nil if no user is known.
func GetUser(r *http.Request) *models.User {
	state := GetSession(r)
	if state == nil {
		return nil
	}
	return state.User()
}

// GetToken returns the access token of the request, or "".
func GetToken(r *http.Request) string {
	state := GetSession(r)
	if state == nil {
		return ""
	}
	return state.Token()
}

// IsAuthenticated reports whether the request carries an access token.
func IsAuthenticated(r *http.Request) bool {
	return GetToken(r) != ""
}

// SetSessionCookie sets the session cookie.
func SetSessionCookie(w http.ResponseWriter, sessionID string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie clears the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
