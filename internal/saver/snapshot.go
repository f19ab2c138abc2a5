package saver

import (
	"path/filepath"
	"time"
)

// Snapshot is one backup copy of the watched source file.
// Its fields are fully recoverable from the backup's file name, which makes the
// destination directory itself the index of known snapshots.
type Snapshot struct {
	Dir        string    // destination directory holding the backup
	SourceName string    // leaf name of the watched source file
	Timestamp  time.Time // mtime of the source when it became stable, whole seconds
	Turn       int       // 0 = undetermined, 1 = valid but counter-less
	Label      string    // user label, may be empty

	// name is the file name found on disk for decoded snapshots. Older or
	// hand-made names such as "turn0" or "turn05" do not re-encode to
	// themselves, so the found name wins over the encoded one.
	name string
}

// FileName returns the backup file name: the name it was found under, or the
// encoded name for a snapshot that has not been written yet.
func (s Snapshot) FileName() string {
	if s.name != "" {
		return s.name
	}
	return EncodeName(s.SourceName, s.Timestamp, s.Turn, s.Label)
}

// Path returns the absolute path of the backup file.
func (s Snapshot) Path() string {
	return filepath.Join(s.Dir, s.FileName())
}

// WithLabel returns a copy of the snapshot carrying a different label. The
// copy's file name is freshly encoded.
func (s Snapshot) WithLabel(label string) Snapshot {
	s.Label = label
	s.name = ""
	return s
}
