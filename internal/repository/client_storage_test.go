package repository

import (
	"context"
	"path/filepath"
	"testing"

	"trading_dashboard/internal/auth"
	"trading_dashboard/internal/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := database.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func setupRepo(t *testing.T) (*ClientStorageRepository, *database.DB) {
	t.Helper()
	db := setupTestDB(t)
	enc, err := auth.NewEncryptor("this-is-a-valid-32-character-key")
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}
	return NewClientStorageRepository(db, enc), db
}

func TestClientStorage_SetGet(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	if err := repo.Set(ctx, "s1", "authToken", "tok123"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, ok, err := repo.Get(ctx, "s1", "authToken")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || value != "tok123" {
		t.Errorf("Get() = %q, %v; want %q, true", value, ok, "tok123")
	}
}

func TestClientStorage_Get_Missing(t *testing.T) {
	repo, _ := setupRepo(t)

	value, ok, err := repo.Get(context.Background(), "s1", "authToken")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok || value != "" {
		t.Errorf("Get() = %q, %v; want empty, false", value, ok)
	}
}

func TestClientStorage_StoredEncrypted(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	if err := repo.Set(ctx, "s1", "authToken", "tok123"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var raw string
	if err := db.QueryRow(`SELECT value FROM client_storage WHERE scope = 's1'`).Scan(&raw); err != nil {
		t.Fatalf("reading raw value: %v", err)
	}
	if raw == "tok123" {
		t.Error("value should not be stored in plaintext")
	}
}

func TestClientStorage_SetOverwrites(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	_ = repo.Set(ctx, "s1", "authToken", "old")
	if err := repo.Set(ctx, "s1", "authToken", "new"); err != nil {
		t.Fatalf("second Set() error = %v", err)
	}

	value, _, _ := repo.Get(ctx, "s1", "authToken")
	if value != "new" {
		t.Errorf("Get() = %q, want %q", value, "new")
	}
}

func TestClientStorage_ScopesAreIsolated(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	_ = repo.Set(ctx, "s1", "authToken", "one")
	_ = repo.Set(ctx, "s2", "authToken", "two")

	if err := repo.DeleteScope(ctx, "s1"); err != nil {
		t.Fatalf("DeleteScope() error = %v", err)
	}

	if _, ok, _ := repo.Get(ctx, "s1", "authToken"); ok {
		t.Error("s1 should be empty after DeleteScope()")
	}
	if value, _, _ := repo.Get(ctx, "s2", "authToken"); value != "two" {
		t.Errorf("s2 value = %q, want %q", value, "two")
	}
}

func TestTokenStore_Lifecycle(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	store := repo.TokenStore(CLIScope)

	if token, err := store.LoadToken(ctx); err != nil || token != "" {
		t.Fatalf("LoadToken() on empty store = %q, %v", token, err)
	}

	if err := store.SaveToken(ctx, "tok123"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	if token, _ := store.LoadToken(ctx); token != "tok123" {
		t.Errorf("LoadToken() = %q, want %q", token, "tok123")
	}

	if err := store.ClearToken(ctx); err != nil {
		t.Fatalf("ClearToken() error = %v", err)
	}
	if token, _ := store.LoadToken(ctx); token != "" {
		t.Errorf("LoadToken() after ClearToken() = %q, want empty", token)
	}

	// Clearing twice is fine
	if err := store.ClearToken(ctx); err != nil {
		t.Errorf("second ClearToken() error = %v", err)
	}
}

func TestTokenStore_WrongSecretFails(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	_ = repo.TokenStore("s1").SaveToken(ctx, "tok123")

	other, _ := auth.NewEncryptor("another-valid-32-character-key!!")
	rotated := NewClientStorageRepository(db, other)

	if _, err := rotated.TokenStore("s1").LoadToken(ctx); err == nil {
		t.Error("LoadToken() with a different secret should fail")
	}
}
