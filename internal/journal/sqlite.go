// Package journal keeps the activity history of the engine in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"autosaver/internal/journal/migrations"
	"autosaver/internal/saver"
)

// SQLiteJournal records saver.JournalEntry rows in a SQLite database.
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

var _ saver.Journal = (*SQLiteJournal)(nil)

// Open opens the journal at path, or ":memory:", and brings its schema up to
// date.
func Open(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection without migrating.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One writer at a time; an in-memory database also only exists per
	// connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

func (j *SQLiteJournal) Record(entry *saver.JournalEntry) error {
	_, err := j.db.ExecContext(context.Background(),
		`INSERT INTO journal_entries (id, occurred_at, kind, source_path, snapshot_name, detail)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.OccurredAt.UnixNano(), entry.Kind, entry.SourcePath, entry.SnapshotName, entry.Detail)
	if err != nil {
		return fmt.Errorf("recording journal entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. An empty sourcePath
// matches every source.
func (j *SQLiteJournal) Recent(sourcePath string, limit int) ([]saver.JournalEntry, error) {
	rows, err := j.db.QueryContext(context.Background(),
		`SELECT id, occurred_at, kind, source_path, snapshot_name, detail
		 FROM journal_entries
		 WHERE ? = '' OR source_path = ?
		 ORDER BY seq DESC
		 LIMIT ?`,
		sourcePath, sourcePath, limit)
	if err != nil {
		return nil, fmt.Errorf("listing journal entries: %w", err)
	}
	defer rows.Close()

	var entries []saver.JournalEntry
	for rows.Next() {
		var e saver.JournalEntry
		var occurred int64
		if err := rows.Scan(&e.ID, &occurred, &e.Kind, &e.SourcePath, &e.SnapshotName, &e.Detail); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.OccurredAt = time.Unix(0, occurred)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing journal entries: %w", err)
	}
	return entries, nil
}

// Path returns the database file path (or ":memory:").
func (j *SQLiteJournal) Path() string {
	return j.path
}

// CheckMigrations verifies the schema is up to date.
func (j *SQLiteJournal) CheckMigrations() error {
	return migrations.CheckStatus(j.db)
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
