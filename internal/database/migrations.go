package database

// SQL migrations for the dashboard database. The trading API owns all
// domain data; only browser sessions and client-side storage live here.
// Tables use IF NOT EXISTS; added columns are checked before ALTER.

const migrationSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// client_storage is a per-client key/value store. scope is a browser
// session id or "cli"; value holds ciphertext.
const migrationClientStorage = `
CREATE TABLE IF NOT EXISTS client_storage (
    scope TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (scope, key)
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
CREATE INDEX IF NOT EXISTS idx_client_storage_updated ON client_storage(updated_at);
`

// One-shot message shown after a redirect (post/redirect/get).
const migrationAddSessionFlash = `
ALTER TABLE sessions ADD COLUMN flash TEXT;
`

var tableMigrations = []string{
	migrationSessions,
	migrationClientStorage,
	migrationIndexes,
}

type columnMigration struct {
	table  string
	column string
	ddl    string
}

var columnMigrations = []columnMigration{
	{table: "sessions", column: "flash", ddl: migrationAddSessionFlash},
}
