package saver

import (
	"io"
	"io/fs"
	"time"
)

// FilesystemManager provides the filesystem operations the engine needs.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	// Stat returns fresh file info for a path.
	Stat(path string) (fs.FileInfo, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// ReadDir returns the names of the regular files in dir, sorted by name.
	// A directory that does not exist yields an empty list and no error.
	ReadDir(dir string) ([]string, error)

	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error

	// CopyFile copies src to dst and sets the modification time of dst to
	// modTime. It fails if dst already exists; a partial copy never becomes
	// visible under dst.
	CopyFile(src, dst string, modTime time.Time) error

	// Rename moves oldPath to newPath. It fails if newPath already exists.
	Rename(oldPath, newPath string) error

	// Remove deletes a file.
	Remove(path string) error
}
