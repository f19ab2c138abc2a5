package journal

import (
	"fmt"
	"os"
	"path/filepath"

	"autosaver/internal/config"
)

// FileName is the journal database name inside journal.data_dir.
const FileName = "journal.db"

// NewJournalFromConfig opens the journal selected by cfg. Type "none" returns
// a nil journal and no error.
func NewJournalFromConfig(cfg config.JournalConfig) (*SQLiteJournal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
		return Open(filepath.Join(cfg.DataDir, FileName))
	case "memory":
		return Open(":memory:")
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}
