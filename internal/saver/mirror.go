package saver

import "io"

// Mirror receives a copy of every new snapshot, for example on another disk or
// in object storage. Mirroring is best effort: a failed upload is reported but
// never undoes the local backup. Keys are snapshot file names at creation
// time; later renames are not propagated.
type Mirror interface {
	// Name identifies the mirror in logs.
	Name() string

	// Put stores the snapshot content under name.
	// size is the number of bytes that will be read from r.
	Put(name string, r io.Reader, size int64) error

	// Get writes the content stored under name to w.
	Get(name string, w io.Writer) error

	// List returns the stored names, sorted.
	List() ([]string, error)
}
