package saver

import "time"

// Journal kinds recorded by the Service.
const (
	JournalBackup            = "backup"
	JournalBackupFailed      = "backup_failed"
	JournalApply             = "apply"
	JournalApplyFailed       = "apply_failed"
	JournalRename            = "rename"
	JournalRenameFailed      = "rename_failed"
	JournalSourceUnavailable = "source_unavailable"
	JournalWatch             = "watch"
)

// JournalEntry is one line of the activity history.
type JournalEntry struct {
	ID           string
	OccurredAt   time.Time
	Kind         string
	SourcePath   string
	SnapshotName string
	Detail       string
}

// Journal records what the engine did. It is a history for the user, not the
// snapshot index: the destination directory stays authoritative.
type Journal interface {
	// Record appends an entry. ID and OccurredAt are set by the caller.
	Record(entry *JournalEntry) error
}

// NopJournal discards all entries.
type NopJournal struct{}

func (NopJournal) Record(*JournalEntry) error { return nil }
