package store

import (
	"database/sql"
	"fmt"
	"time"
)

// createSchema creates all tables, indexes, and the vector virtual table for
// a fresh store. Table creation and the bootstrap settings row run inside
// one transaction; the sqlite-vec virtual table is created outside it,
// since vec0 (like FTS5) cannot be declared mid-transaction.
func createSchema(db *sql.DB, dimensions int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("store: enable foreign keys: %w", err)
	}

	ddl := []string{
		createCodeChunksTable,
		createDocChunksTable,
		createEventsTable,
		createScansTable,
		createSettingsTable,
	}
	for i, stmt := range ddl {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("store: create table %d: %w", i, err)
		}
	}

	for i, idx := range schemaIndexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("store: create index %d: %w", i, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT INTO settings (key, value) VALUES ('schema_version', '1'), ('last_scan_to', ''), ('bootstrapped_at', ?)`,
		now,
	); err != nil {
		return fmt.Errorf("store: bootstrap settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit schema transaction: %w", err)
	}

	if err := createVectorIndex(db, dimensions); err != nil {
		return fmt.Errorf("store: create vector index: %w", err)
	}

	return nil
}

// schemaVersion returns "0" for a database with no settings table yet (a
// brand new store directory).
func schemaVersion(db *sql.DB) (string, error) {
	var exists int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'settings'`,
	).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("store: checking settings table: %w", err)
	}
	if exists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow(`SELECT value FROM settings WHERE key = 'schema_version'`).Scan(&version)
	if err == sql.ErrNoRows {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: reading schema_version: %w", err)
	}
	return version, nil
}

const createCodeChunksTable = `
CREATE TABLE code_chunks (
    identity        TEXT PRIMARY KEY,
    path            TEXT NOT NULL,
    qualified_name  TEXT NOT NULL,
    language        TEXT NOT NULL,
    kind            TEXT NOT NULL,
    visibility      TEXT NOT NULL,
    signature       TEXT NOT NULL,
    signature_hash  TEXT NOT NULL,
    doc_comment     TEXT NOT NULL DEFAULT '',
    content_hash    TEXT NOT NULL,
    line_start      INTEGER NOT NULL,
    line_end        INTEGER NOT NULL,
    revision_added  TEXT NOT NULL,
    revision_removed TEXT,
    updated_revision TEXT NOT NULL
)
`

const createDocChunksTable = `
CREATE TABLE doc_chunks (
    identity        TEXT PRIMARY KEY,
    path            TEXT NOT NULL,
    heading_path    TEXT NOT NULL,
    level           INTEGER NOT NULL,
    content         TEXT NOT NULL,
    content_hash    TEXT NOT NULL,
    line_start      INTEGER NOT NULL,
    line_end        INTEGER NOT NULL,
    revision_added  TEXT NOT NULL,
    revision_removed TEXT,
    updated_revision TEXT NOT NULL
)
`

const createEventsTable = `
CREATE TABLE events (
    id               TEXT PRIMARY KEY,
    kind             TEXT NOT NULL,
    severity         TEXT NOT NULL,
    confidence       REAL NOT NULL,
    description      TEXT NOT NULL,
    evidence         TEXT NOT NULL,
    related_code     TEXT NOT NULL,
    related_doc      TEXT NOT NULL,
    suggested_fix    TEXT,
    status           TEXT NOT NULL,
    ignore_reason    TEXT,
    ignore_permanent INTEGER NOT NULL DEFAULT 0,
    created_revision TEXT NOT NULL,
    updated_revision TEXT NOT NULL
)
`

const createScansTable = `
CREATE TABLE scans (
    id          TEXT PRIMARY KEY,
    from_rev    TEXT NOT NULL,
    to_rev      TEXT NOT NULL,
    mode        TEXT NOT NULL,
    started_at  TEXT NOT NULL,
    finished_at TEXT,
    event_count INTEGER NOT NULL DEFAULT 0
)
`

const createSettingsTable = `
CREATE TABLE settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)
`

var schemaIndexes = []string{
	"CREATE INDEX idx_code_chunks_path ON code_chunks(path)",
	"CREATE INDEX idx_code_chunks_qualified_name ON code_chunks(qualified_name)",
	"CREATE INDEX idx_code_chunks_revision_removed ON code_chunks(revision_removed)",
	"CREATE INDEX idx_doc_chunks_path ON doc_chunks(path)",
	"CREATE INDEX idx_doc_chunks_revision_removed ON doc_chunks(revision_removed)",
	"CREATE INDEX idx_events_status ON events(status)",
	"CREATE INDEX idx_events_kind ON events(kind)",
	"CREATE INDEX idx_events_severity ON events(severity)",
}
