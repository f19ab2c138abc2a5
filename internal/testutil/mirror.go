package testutil

import (
	"autosaver/internal/mirror"
)

// NewTestMirror creates a new in-memory mirror for testing.
func NewTestMirror() *mirror.MemoryMirror {
	return mirror.NewMemoryMirror("test-mirror")
}
