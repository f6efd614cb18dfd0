// Package auth provides browser session management and at-rest protection
// of stored access tokens.
package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"trading_dashboard/internal/database"
	"trading_dashboard/internal/models"
)

const (
	// DefaultSessionDuration is the default session lifetime.
	DefaultSessionDuration = 7 * 24 * time.Hour // 7 days
)

var (
	// ErrSessionExpired is returned when a session has expired.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
)

// SessionManager handles browser session operations. A browser session only
// identifies a client; the trading API token it may hold lives in client
// storage under the session id.
type SessionManager struct {
	db       *database.DB
	duration time.Duration
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(db *database.DB) *SessionManager {
	return &SessionManager{
		db:       db,
		duration: DefaultSessionDuration,
	}
}

// WithDuration sets a custom session duration.
func (sm *SessionManager) WithDuration(d time.Duration) *SessionManager {
	sm.duration = d
	return sm
}

// Duration returns the session lifetime.
func (sm *SessionManager) Duration() time.Duration {
	return sm.duration
}

// Create creates a new session.
func (sm *SessionManager) Create() (*models.Session, error) {
	// Generate random session ID
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:        id,
		ExpiresAt: time.Now().Add(sm.duration),
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO sessions (id, expires_at, created_at)
		VALUES (?, ?, ?)
	`
	_, err = sm.db.Exec(query, session.ID, session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return session, nil
}

// Get retrieves a session by ID. Returns nil if not found.
func (sm *SessionManager) Get(id string) (*models.Session, error) {
	query := `
		SELECT id, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`

	session := &models.Session{}
	err := sm.db.QueryRow(query, id).Scan(
		&session.ID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	return session, nil
}

// Validate checks if a session exists and is not expired.
func (sm *SessionManager) Validate(id string) (*models.Session, error) {
	session, err := sm.Get(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		// Clean up the expired session
		sm.Delete(id)
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Delete removes a session by ID.
func (sm *SessionManager) Delete(id string) error {
	query := `DELETE FROM sessions WHERE id = ?`
	_, err := sm.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// SetFlash stores a message to show on the next page rendered for the session.
func (sm *SessionManager) SetFlash(id, message string) error {
	_, err := sm.db.Exec(`UPDATE sessions SET flash = ? WHERE id = ?`, message, id)
	if err != nil {
		return fmt.Errorf("setting flash: %w", err)
	}
	return nil
}

// PopFlash returns and clears the pending flash message, so it is shown
// exactly once.
func (sm *SessionManager) PopFlash(id string) (string, error) {
	tx, err := sm.db.Begin()
	if err != nil {
		return "", fmt.Errorf("reading flash: %w", err)
	}
	defer tx.Rollback()

	var flash sql.NullString
	err = tx.QueryRow(`SELECT flash FROM sessions WHERE id = ?`, id).Scan(&flash)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && flash.String == "") {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading flash: %w", err)
	}

	if _, err := tx.Exec(`UPDATE sessions SET flash = NULL WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("clearing flash: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("clearing flash: %w", err)
	}
	return flash.String, nil
}

// CleanExpired removes all expired sessions together with their client
// storage and returns the number of sessions removed.
func (sm *SessionManager) CleanExpired() (int64, error) {
	now := time.Now()

	_, err := sm.db.Exec(`
		DELETE FROM client_storage
		WHERE scope IN (SELECT id FROM sessions WHERE expires_at < ?)
	`, now)
	if err != nil {
		return 0, fmt.Errorf("cleaning expired client storage: %w", err)
	}

	result, err := sm.db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, now)
	if err != nil {
		return 0, fmt.Errorf("cleaning expired sessions: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting affected rows: %w", err)
	}

	return count, nil
}

// generateSessionID creates a cryptographically secure session ID.
func generateSessionID() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
