package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_CreatesConnection(t *testing.T) {
	// Setup: use temporary directory
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	// Test: create new database connection
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	defer db.Close()

	// Verify: database file exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}

	// Verify: can ping database
	if err := db.Ping(); err != nil {
		t.Errorf("Ping() error = %v, want nil", err)
	}
}

func TestNew_InvalidPath_ReturnsError(t *testing.T) {
	// A regular file where the parent directory should be
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("writing blocker: %v", err)
	}

	_, err := New(filepath.Join(blocker, "sub", "test.db"))
	if err == nil {
		t.Error("New() with invalid path should return error")
	}
}

func TestRunMigrations_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v, want nil", err)
	}

	for _, table := range []string{"sessions", "client_storage"} {
		var exists int
		query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
		if err := db.QueryRow(query, table).Scan(&exists); err != nil {
			t.Errorf("checking table %s: %v", table, err)
			continue
		}
		if exists != 1 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestRunMigrations_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	for _, index := range []string{"idx_sessions_expires", "idx_client_storage_updated"} {
		var exists int
		query := `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?`
		if err := db.QueryRow(query, index).Scan(&exists); err != nil {
			t.Errorf("checking index %s: %v", index, err)
			continue
		}
		if exists != 1 {
			t.Errorf("index %s does not exist", index)
		}
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := openTestDB(t)

	// Test: run migrations multiple times
	for i := 0; i < 3; i++ {
		if err := db.RunMigrations(); err != nil {
			t.Fatalf("RunMigrations() iteration %d error = %v, want nil", i+1, err)
		}
	}

	var tableCount int
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`
	if err := db.QueryRow(query).Scan(&tableCount); err != nil {
		t.Fatalf("counting tables: %v", err)
	}

	expectedCount := 2 // sessions, client_storage
	if tableCount != expectedCount {
		t.Errorf("table count = %d, want %d", tableCount, expectedCount)
	}
}

func TestRunMigrations_AddsFlashColumn(t *testing.T) {
	db := openTestDB(t)

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	_, err := db.Exec(`INSERT INTO sessions (id, expires_at, flash) VALUES (?, datetime('now', '+1 hour'), ?)`, "abc", "Trade executed")
	if err != nil {
		t.Fatalf("insert with flash: %v", err)
	}

	var flash string
	if err := db.QueryRow(`SELECT flash FROM sessions WHERE id = ?`, "abc").Scan(&flash); err != nil {
		t.Fatalf("select flash: %v", err)
	}
	if flash != "Trade executed" {
		t.Errorf("flash = %q, want %q", flash, "Trade executed")
	}
}

func TestDB_Close(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Test: close database
	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}

	// Verify: operations fail after close
	if err := db.Ping(); err == nil {
		t.Error("Ping() after Close() should return error")
	}
}

func TestClientStorage_PrimaryKey(t *testing.T) {
	db := openTestDB(t)
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	insert := `INSERT INTO client_storage (scope, key, value) VALUES (?, ?, ?)`
	if _, err := db.Exec(insert, "cli", "authToken", "a"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := db.Exec(insert, "cli", "authToken", "b"); err == nil {
		t.Error("duplicate (scope, key) should be rejected")
	}
	if _, err := db.Exec(insert, "other", "authToken", "c"); err != nil {
		t.Errorf("same key in another scope: %v", err)
	}
}

func TestNew_SetsBusyTimeout(t *testing.T) {
	db := openTestDB(t)

	var timeout int
	if err := db.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout); err != nil {
		t.Fatalf("reading busy_timeout: %v", err)
	}
	if timeout != busyTimeoutMillis {
		t.Errorf("busy_timeout = %d, want %d", timeout, busyTimeoutMillis)
	}
}

func TestHasColumn(t *testing.T) {
	db := openTestDB(t)
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	tests := []struct {
		table, column string
		want          bool
	}{
		{"sessions", "flash", true},
		{"sessions", "expires_at", true},
		{"sessions", "user_id", false},
		{"client_storage", "scope", true},
		{"missing_table", "id", false},
	}
	for _, tt := range tests {
		got, err := db.hasColumn(tt.table, tt.column)
		if err != nil {
			t.Errorf("hasColumn(%s, %s) error = %v", tt.table, tt.column, err)
			continue
		}
		if got != tt.want {
			t.Errorf("hasColumn(%s, %s) = %v, want %v", tt.table, tt.column, got, tt.want)
		}
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
