// Package repository provides the data access layer for the dashboard's
// own state: per-client storage of secrets such as the access token.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trading_dashboard/internal/auth"
	"trading_dashboard/internal/database"
)

// TokenKey is the fixed storage key of the access token.
const TokenKey = "authToken"

// CLIScope is the storage scope used by the terminal client.
const CLIScope = "cli"

// ClientStorageRepository is a key/value store partitioned by client scope.
// Values are encrypted at rest with a key derived from the scope.
type ClientStorageRepository struct {
	db        *database.DB
	encryptor *auth.Encryptor
}

// NewClientStorageRepository creates a new ClientStorageRepository.
func NewClientStorageRepository(db *database.DB, encryptor *auth.Encryptor) *ClientStorageRepository {
	return &ClientStorageRepository{db: db, encryptor: encryptor}
}

// Get returns the value stored under key. ok is false if nothing is stored.
func (r *ClientStorageRepository) Get(ctx context.Context, scope, key string) (value string, ok bool, err error) {
	query := `SELECT value FROM client_storage WHERE scope = ? AND key = ?`

	var sealed string
	err = r.db.QueryRowContext(ctx, query, scope, key).Scan(&sealed)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting %s: %w", key, err)
	}

	value, err = r.encryptor.Open(sealed, scope)
	if err != nil {
		return "", false, fmt.Errorf("decrypting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (r *ClientStorageRepository) Set(ctx context.Context, scope, key, value string) error {
	sealed, err := r.encryptor.Seal(value, scope)
	if err != nil {
		return fmt.Errorf("encrypting %s: %w", key, err)
	}

	query := `
		INSERT INTO client_storage (scope, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, scope, key, sealed, time.Now()); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *ClientStorageRepository) Delete(ctx context.Context, scope, key string) error {
	query := `DELETE FROM client_storage WHERE scope = ? AND key = ?`
	if _, err := r.db.ExecContext(ctx, query, scope, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// DeleteScope removes everything stored for a scope.
func (r *ClientStorageRepository) DeleteScope(ctx context.Context, scope string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM client_storage WHERE scope = ?`, scope); err != nil {
		return fmt.Errorf("deleting scope: %w", err)
	}
	return nil
}

// TokenStore returns the access token store of one client.
func (r *ClientStorageRepository) TokenStore(scope string) *TokenStore {
	return &TokenStore{repo: r, scope: scope}
}

// TokenStore persists the single access token of one client.
type TokenStore struct {
	repo  *ClientStorageRepository
	scope string
}

// LoadToken returns the stored token, or "" when there is none.
func (s *TokenStore) LoadToken(ctx context.Context) (string, error) {
	token, _, err := s.repo.Get(ctx, s.scope, TokenKey)
	return token, err
}

// SaveToken persists token.
func (s *TokenStore) SaveToken(ctx context.Context, token string) error {
	return s.repo.Set(ctx, s.scope, TokenKey, token)
}

// ClearToken removes the stored token.
func (s *TokenStore) ClearToken(ctx context.Context) error {
	return s.repo.Delete(ctx, s.scope, TokenKey)
}
