package config

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Timestamps are stored as fixed-width UTC text so that ORDER BY on the column is chronological.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	phone TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('farmer', 'consumer', 'admin')),
	verified INTEGER NOT NULL DEFAULT 0,
	verified_at TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_phone_role ON users(phone, role);
CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at);
`

// OpenSQLite opens the pure-Go SQLite driver and applies the schema.
// dsn examples: "file:agriconnect.db" or ":memory:".
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One writer at a time; also keeps a ":memory:" database alive on a single connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", p, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to apply sqlite migrations: %w", err)
	}
	return db, nil
}
