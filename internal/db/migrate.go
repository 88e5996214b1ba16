// Package db provides database schema migration management.
package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	apperrors "github.com/kimhsiao/driftwood/internal/errors"
)

// migration is one versioned schema step, compiled into the binary.
type migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations must stay append-only and sorted by version.
var migrations = []migration{
	{
		Version:     1,
		Description: "initial_schema",
		SQL: `
	CREATE TABLE records (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL CHECK(length(title) > 0),
		content      TEXT NOT NULL CHECK(length(content) > 0),
		content_type TEXT NOT NULL DEFAULT 'text',
		status       TEXT NOT NULL DEFAULT 'active',
		meta         TEXT,
		blob_ids     TEXT,
		sealed_until INTEGER,
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL CHECK(updated_at >= created_at)
	);
	CREATE INDEX idx_records_created ON records(created_at DESC);
	CREATE INDEX idx_records_status ON records(status);
	CREATE INDEX idx_records_sealed_until ON records(sealed_until);

	CREATE TABLE blobs (
		id         TEXT PRIMARY KEY,
		memory_id  TEXT NOT NULL,
		kind       TEXT NOT NULL,
		mime_type  TEXT NOT NULL,
		size       INTEGER NOT NULL,
		data       BLOB NOT NULL,
		width      INTEGER NOT NULL DEFAULT 0,
		height     INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX idx_blobs_memory ON blobs(memory_id);
	CREATE INDEX idx_blobs_kind ON blobs(kind);
	CREATE INDEX idx_blobs_created ON blobs(created_at);

	CREATE TABLE settings (
		id      TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	);
	`,
	},
}

// Migrator applies the compiled-in migration set and records each
// applied version in schema_migrations.
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (m *Migrator) Initialize() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY CHECK(version > 0),
		applied_at  INTEGER NOT NULL CHECK(applied_at > 0),
		description TEXT NOT NULL CHECK(length(description) > 0),
		checksum    TEXT NOT NULL CHECK(length(checksum) = 64)
	);`
	if _, err := m.db.Exec(query); err != nil {
		return apperrors.Wrap(apperrors.ErrMigration, "failed to create schema_migrations", err)
	}
	return nil
}

// CurrentVersion returns the current schema version, 0 for a fresh store.
func (m *Migrator) CurrentVersion() (int, error) {
	var version int
	err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrMigration, "failed to read schema version", err)
	}
	return version, nil
}

// Up applies all pending migrations, each in its own transaction.
func (m *Migrator) Up() error {
	if err := m.Initialize(); err != nil {
		return err
	}

	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}

	for _, mig := range migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(mig); err != nil {
			return apperrors.Wrap(apperrors.ErrMigration,
				fmt.Sprintf("failed to apply migration V%d", mig.Version), err)
		}
	}
	return nil
}

// apply runs one migration and records it atomically.
func (m *Migrator) apply(mig migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(mig.SQL); err != nil {
		return err
	}

	hash := sha256.Sum256([]byte(mig.SQL))
	checksum := hex.EncodeToString(hash[:])
	query := `INSERT INTO schema_migrations (version, applied_at, description, checksum)
			  VALUES (?, ?, ?, ?)`
	if _, err := tx.Exec(query, mig.Version, time.Now().Unix(), mig.Description, checksum); err != nil {
		return err
	}

	return tx.Commit()
}
