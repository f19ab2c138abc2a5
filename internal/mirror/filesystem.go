// Package mirror provides secondary destinations that receive a copy of every
// new snapshot.
package mirror

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"autosaver/internal/saver"
)

// FileSystemMirror keeps flat copies of snapshots under a root directory,
// typically on another disk.
type FileSystemMirror struct {
	name string
	root string
}

var _ saver.Mirror = (*FileSystemMirror)(nil)

// NewFileSystemMirror creates root if needed.
func NewFileSystemMirror(name, root string) (*FileSystemMirror, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create mirror root: %w", err)
	}
	return &FileSystemMirror{name: name, root: root}, nil
}

func (m *FileSystemMirror) Name() string { return m.name }

// Put writes through a temp file and renames it into place. Storing a name
// twice replaces the earlier copy.
func (m *FileSystemMirror) Put(name string, r io.Reader, size int64) error {
	dest, err := m.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(m.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func (m *FileSystemMirror) Get(name string, w io.Writer) error {
	src, err := m.path(name)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

func (m *FileSystemMirror) List() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil, fmt.Errorf("reading mirror root: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// path rejects names that would escape the root.
func (m *FileSystemMirror) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid mirror key %q", name)
	}
	return filepath.Join(m.root, name), nil
}
