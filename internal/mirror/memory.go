package mirror

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"autosaver/internal/saver"
)

// ErrNotFound is returned by Get for an unknown name.
var ErrNotFound = errors.New("not found in mirror")

// MemoryMirror keeps snapshots in memory. It is safe for concurrent use.
type MemoryMirror struct {
	name    string
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ saver.Mirror = (*MemoryMirror)(nil)

func NewMemoryMirror(name string) *MemoryMirror {
	return &MemoryMirror{name: name, objects: make(map[string][]byte)}
}

func (m *MemoryMirror) Name() string { return m.name }

func (m *MemoryMirror) Put(name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	return nil
}

func (m *MemoryMirror) Get(name string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.objects[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	_, err := io.Copy(w, bytes.NewReader(data))
	return err
}

func (m *MemoryMirror) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
