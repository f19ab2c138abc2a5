package mirror

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"autosaver/internal/saver"
)

// EncryptedSuffix is appended to the key of every encrypted object.
const EncryptedSuffix = ".age"

// EncryptingMirror encrypts content before handing it to another mirror.
// Keys seen by callers never carry EncryptedSuffix.
type EncryptingMirror struct {
	inner     saver.Mirror
	encryptor saver.Encryptor
}

var _ saver.Mirror = (*EncryptingMirror)(nil)

func NewEncryptingMirror(inner saver.Mirror, encryptor saver.Encryptor) *EncryptingMirror {
	return &EncryptingMirror{inner: inner, encryptor: encryptor}
}

func (m *EncryptingMirror) Name() string { return m.inner.Name() }

// Put buffers the ciphertext, since the inner mirror needs its size up front.
func (m *EncryptingMirror) Put(name string, r io.Reader, size int64) error {
	var sealed bytes.Buffer
	if err := m.encryptor.Encrypt(io.LimitReader(r, size), &sealed); err != nil {
		return fmt.Errorf("encrypting %s: %w", name, err)
	}
	return m.inner.Put(name+EncryptedSuffix, &sealed, int64(sealed.Len()))
}

// Get returns the ciphertext. Use Open for plaintext.
func (m *EncryptingMirror) Get(name string, w io.Writer) error {
	return m.inner.Get(name+EncryptedSuffix, w)
}

// Open writes the decrypted content of name to w.
func (m *EncryptingMirror) Open(name string, dc saver.DecryptionContext, w io.Writer) error {
	var sealed bytes.Buffer
	if err := m.Get(name, &sealed); err != nil {
		return err
	}
	if err := dc.Decrypt(&sealed, w); err != nil {
		return fmt.Errorf("decrypting %s: %w", name, err)
	}
	return nil
}

func (m *EncryptingMirror) List() ([]string, error) {
	names, err := m.inner.List()
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		if base, ok := strings.CutSuffix(n, EncryptedSuffix); ok {
			out = append(out, base)
		}
	}
	return out, nil
}
