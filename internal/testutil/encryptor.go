package testutil

import (
	"autosaver/internal/encryption"
	"autosaver/internal/saver"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() saver.Encryptor {
	return encryption.NewTestEncryptor()
}
