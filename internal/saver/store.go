package saver

import (
	"fmt"
	"sort"
	"time"
)

// Store is the ordered set of snapshots known for one (source name,
// destination directory) pair. Row indices follow the directory listing order,
// which is chronological because timestamps lead the file names. Rows are only
// meaningful until the next Rescan.
type Store struct {
	sourceName string
	dir        string
	rows       []Snapshot
}

// NewStore returns an empty store for the given pair.
func NewStore(sourceName, dir string) *Store {
	return &Store{sourceName: sourceName, dir: dir}
}

// SourceName returns the source base name the store matches against.
func (st *Store) SourceName() string { return st.sourceName }

// Dir returns the destination directory.
func (st *Store) Dir() string { return st.dir }

// Rescan rebuilds the store from the destination directory. Entries that do
// not decode as backups of the source are skipped. An empty or missing
// directory yields an empty store.
func (st *Store) Rescan(fsys FilesystemManager) error {
	names, err := fsys.ReadDir(st.dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", st.dir, err)
	}

	rows := make([]Snapshot, 0, len(names))
	for _, name := range names {
		snap, ok := DecodeName(st.dir, name, st.sourceName)
		if !ok {
			continue
		}
		rows = append(rows, snap)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].FileName() < rows[j].FileName()
	})

	st.rows = rows
	return nil
}

// Insert appends a snapshot and returns its row.
func (st *Store) Insert(snap Snapshot) int {
	st.rows = append(st.rows, snap)
	return len(st.rows) - 1
}

// Get returns the snapshot at row.
func (st *Store) Get(row int) (Snapshot, error) {
	if row < 0 || row >= len(st.rows) {
		return Snapshot{}, &Error{Kind: ErrOutOfRange, Path: st.dir, Err: fmt.Errorf("row %d of %d", row, len(st.rows))}
	}
	return st.rows[row], nil
}

// Len returns the number of rows.
func (st *Store) Len() int { return len(st.rows) }

// All returns a copy of the rows in order.
func (st *Store) All() []Snapshot {
	out := make([]Snapshot, len(st.rows))
	copy(out, st.rows)
	return out
}

// FindTimestamp returns the last row whose timestamp equals ts at whole-second
// resolution.
func (st *Store) FindTimestamp(ts time.Time) (int, bool) {
	ts = truncateToSecond(ts)
	for i := len(st.rows) - 1; i >= 0; i-- {
		if st.rows[i].Timestamp.Equal(ts) {
			return i, true
		}
	}
	return -1, false
}

// Rename relabels the snapshot at row. The file is renamed on disk first; the
// in-memory row changes only if that succeeds.
func (st *Store) Rename(fsys FilesystemManager, row int, label string) (Snapshot, error) {
	current, err := st.Get(row)
	if err != nil {
		return Snapshot{}, err
	}
	if err := ValidateLabel(label); err != nil {
		return current, err
	}

	if label == current.Label {
		return current, nil
	}
	renamed := current.WithLabel(label)

	if err := fsys.Rename(current.Path(), renamed.Path()); err != nil {
		return current, &Error{Kind: ErrRenameFailed, Path: current.Path(), Err: err}
	}

	st.rows[row] = renamed
	return renamed, nil
}
