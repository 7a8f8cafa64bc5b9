// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package state persists per-note export bookkeeping so incremental runs
// can skip notes whose content has not changed since the last export.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/note-export/pkg/types"
)

const dbFile = "export-state.db"

// Store manages the export-state SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the export-state database under dir, creating the
// schema if it does not exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS notes (
			doc_guid TEXT PRIMARY KEY,
			title TEXT,
			folder TEXT,
			provenance TEXT,
			data_modified TEXT,
			exported_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_folder ON notes(folder)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// NeedsExport reports whether a note's data-modified timestamp differs
// from what the last export recorded. Unknown notes always need export.
func (s *Store) NeedsExport(ctx context.Context, docGUID string, modified time.Time) (bool, error) {
	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT data_modified FROM notes WHERE doc_guid = ?`, docGUID,
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying note %s: %w", docGUID, err)
	}
	return stored != modified.UTC().Format(time.RFC3339Nano), nil
}

// MarkExported records a successful export. Called only after the
// Markdown file write succeeded.
func (s *Store) MarkExported(ctx context.Context, record types.RetrievalRecord, modified time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (doc_guid, title, folder, provenance, data_modified, exported_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(doc_guid) DO UPDATE SET
			title=excluded.title, folder=excluded.folder, provenance=excluded.provenance,
			data_modified=excluded.data_modified, exported_at=excluded.exported_at`,
		record.DocGUID, record.Title, record.Folder, string(record.Transport),
		modified.UTC().Format(time.RFC3339Nano),
		record.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording export of %s: %w", record.DocGUID, err)
	}
	return nil
}
