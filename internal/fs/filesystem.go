package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"autosaver/internal/saver"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
// It performs actual filesystem operations using the os package.
type OSFilesystemManager struct {
	dirPerm os.FileMode
}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{dirPerm: 0o755}
}

// Stat returns fresh file info for a path. Symlinks are followed, so a save
// file reached through a link is watched like a regular file.
func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path)
	}
	return os.Open(path)
}

// ReadDir lists regular files in dir, sorted by name.
func (m *OSFilesystemManager) ReadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// MkdirAll creates dir and any missing parents.
func (m *OSFilesystemManager) MkdirAll(dir string) error {
	return os.MkdirAll(dir, m.dirPerm)
}

// CopyFile copies src to dst through a temp file in dst's directory, so a
// reader never sees a partial dst. The temp file is linked into place, which
// fails instead of overwriting an existing dst.
func (m *OSFilesystemManager) CopyFile(src, dst string, modTime time.Time) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("destination exists: %s: %w", dst, fs.ErrExist)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".autosaver-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copying data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, srcInfo.Mode().Perm()); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Chtimes(tmpPath, modTime, modTime); err != nil {
		return fmt.Errorf("setting modification time: %w", err)
	}

	if err := os.Link(tmpPath, dst); err != nil {
		// Some filesystems have no hard links; fall back to a checked rename.
		if _, statErr := os.Lstat(dst); statErr == nil {
			return fmt.Errorf("destination exists: %s: %w", dst, fs.ErrExist)
		}
		if err := os.Rename(tmpPath, dst); err != nil {
			return fmt.Errorf("moving into place: %w", err)
		}
	}
	return nil
}

// Rename moves oldPath to newPath, refusing to replace an existing file.
func (m *OSFilesystemManager) Rename(oldPath, newPath string) error {
	if _, err := os.Lstat(newPath); err == nil {
		return fmt.Errorf("destination exists: %s: %w", newPath, fs.ErrExist)
	}
	return os.Rename(oldPath, newPath)
}

// Remove deletes a file.
func (m *OSFilesystemManager) Remove(path string) error {
	return os.Remove(path)
}

// Compile-time check that OSFilesystemManager implements saver.FilesystemManager interface
var _ saver.FilesystemManager = (*OSFilesystemManager)(nil)
