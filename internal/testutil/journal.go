package testutil

import (
	"testing"

	"autosaver/internal/journal"
)

// NewTestJournal opens an in-memory journal that is closed when the test
// completes.
func NewTestJournal(t *testing.T) *journal.SQLiteJournal {
	t.Helper()

	j, err := journal.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	t.Cleanup(func() {
		j.Close()
	})
	return j
}
