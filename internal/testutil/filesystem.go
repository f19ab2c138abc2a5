package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"autosaver/internal/saver"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content []byte
	ModTime time.Time
}

// MockFilesystemManager is an in-memory filesystem for testing. Paths are
// cleaned but otherwise used as given. Failures can be injected per
// operation through the hook fields, which run without the lock held so they
// may modify the filesystem.
type MockFilesystemManager struct {
	mu    sync.Mutex
	files map[string]*MockFile
	dirs  map[string]bool

	// CopyHook runs before every CopyFile; a non-nil error fails the copy.
	CopyHook func(src, dst string) error
	// RenameHook runs before every Rename; a non-nil error fails it.
	RenameHook func(oldPath, newPath string) error
	// RemoveHook runs before every Remove; a non-nil error fails it.
	RemoveHook func(path string) error
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
		dirs:  make(map[string]bool),
	}
}

// AddFile creates or replaces a file and its parent directories.
func (m *MockFilesystemManager) AddFile(path string, content []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.files[path] = &MockFile{Content: append([]byte(nil), content...), ModTime: modTime}
	m.mkdirAllLocked(filepath.Dir(path))
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAllLocked(filepath.Clean(path))
}

// Touch sets the modification time of an existing file.
func (m *MockFilesystemManager) Touch(path string, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[filepath.Clean(path)]; ok {
		f.ModTime = modTime
	}
}

// Delete removes a file without going through the hooks.
func (m *MockFilesystemManager) Delete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, filepath.Clean(path))
}

// File returns the file at path, or nil.
func (m *MockFilesystemManager) File(path string) *MockFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil
	}
	return &MockFile{Content: append([]byte(nil), f.Content...), ModTime: f.ModTime}
}

// Names lists the file names directly inside dir.
func (m *MockFilesystemManager) Names(dir string) []string {
	names, _ := m.ReadDir(dir)
	return names
}

func (m *MockFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if f, ok := m.files[path]; ok {
		return &mockFileInfo{name: filepath.Base(path), size: int64(len(f.Content)), mode: 0o644, modTime: f.ModTime}, nil
	}
	if m.dirs[path] {
		return &mockFileInfo{name: filepath.Base(path), mode: fs.ModeDir | 0o755}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

func (m *MockFilesystemManager) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	f, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), f.Content...))), nil
}

func (m *MockFilesystemManager) ReadDir(dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir = filepath.Clean(dir)
	var names []string
	for path := range m.files {
		if filepath.Dir(path) == dir {
			names = append(names, filepath.Base(path))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *MockFilesystemManager) MkdirAll(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := filepath.Clean(dir)
	if _, ok := m.files[path]; ok {
		return fmt.Errorf("mkdir %s: %w", path, fs.ErrExist)
	}
	m.mkdirAllLocked(path)
	return nil
}

func (m *MockFilesystemManager) CopyFile(src, dst string, modTime time.Time) error {
	if m.CopyHook != nil {
		if err := m.CopyHook(src, dst); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	src, dst = filepath.Clean(src), filepath.Clean(dst)
	f, ok := m.files[src]
	if !ok {
		return &fs.PathError{Op: "open", Path: src, Err: fs.ErrNotExist}
	}
	if _, exists := m.files[dst]; exists {
		return &fs.PathError{Op: "copy", Path: dst, Err: fs.ErrExist}
	}
	if !m.dirs[filepath.Dir(dst)] {
		return &fs.PathError{Op: "copy", Path: dst, Err: fs.ErrNotExist}
	}
	m.files[dst] = &MockFile{Content: append([]byte(nil), f.Content...), ModTime: modTime}
	return nil
}

func (m *MockFilesystemManager) Rename(oldPath, newPath string) error {
	if m.RenameHook != nil {
		if err := m.RenameHook(oldPath, newPath); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	oldPath, newPath = filepath.Clean(oldPath), filepath.Clean(newPath)
	f, ok := m.files[oldPath]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldPath, Err: fs.ErrNotExist}
	}
	if _, exists := m.files[newPath]; exists {
		return &fs.PathError{Op: "rename", Path: newPath, Err: fs.ErrExist}
	}
	delete(m.files, oldPath)
	m.files[newPath] = f
	return nil
}

func (m *MockFilesystemManager) Remove(path string) error {
	if m.RemoveHook != nil {
		if err := m.RemoveHook(path); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if _, ok := m.files[path]; !ok {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	delete(m.files, path)
	return nil
}

func (m *MockFilesystemManager) mkdirAllLocked(dir string) {
	for {
		m.dirs[dir] = true
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.mode.IsDir() }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ saver.FilesystemManager = (*MockFilesystemManager)(nil)
