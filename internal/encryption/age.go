package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"autosaver/internal/saver"
)

// AgeEncryptor encrypts mirrored snapshots to an X25519 recipient. The
// identity file is itself age-encrypted with a scrypt passphrase.
type AgeEncryptor struct {
	recipientPath string
	identityPath  string
}

var _ saver.Encryptor = (*AgeEncryptor)(nil)

func NewAgeEncryptor(recipientPath, identityPath string) *AgeEncryptor {
	return &AgeEncryptor{recipientPath: recipientPath, identityPath: identityPath}
}

// Setup writes a fresh key pair. Existing keys are never replaced, since
// snapshots mirrored under the old key would become unreadable.
func (e *AgeEncryptor) Setup(passphrase string) error {
	if passphrase == "" {
		return errors.New("passphrase must not be empty")
	}
	if e.IsConfigured() {
		return fmt.Errorf("keys already exist at %s", filepath.Dir(e.identityPath))
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating identity: %w", err)
	}

	for _, p := range []string{e.recipientPath, e.identityPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}
	}

	var sealed bytes.Buffer
	scrypt, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	w, err := age.Encrypt(&sealed, scrypt)
	if err != nil {
		return fmt.Errorf("sealing identity: %w", err)
	}
	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return fmt.Errorf("sealing identity: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sealing identity: %w", err)
	}

	if err := os.WriteFile(e.identityPath, sealed.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	if err := os.WriteFile(e.recipientPath, []byte(identity.Recipient().String()+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing recipient: %w", err)
	}
	return nil
}

// Encrypt needs only the recipient file.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	data, err := os.ReadFile(e.recipientPath)
	if err != nil {
		return fmt.Errorf("reading recipient: %w", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing recipient: %w", err)
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipient in %s", e.recipientPath)
	}

	ew, err := age.Encrypt(w, recipients...)
	if err != nil {
		return fmt.Errorf("starting encryption: %w", err)
	}
	if _, err := io.Copy(ew, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := ew.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

func (e *AgeEncryptor) Unlock(passphrase string) (saver.DecryptionContext, error) {
	sealed, err := os.ReadFile(e.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}

	scrypt, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(sealed), scrypt)
	if err != nil {
		return nil, fmt.Errorf("unsealing identity: %w", err)
	}

	identities, err := age.ParseIdentities(r)
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identity in %s", e.identityPath)
	}
	return &ageDecryptor{identities: identities}, nil
}

func (e *AgeEncryptor) IsConfigured() bool {
	for _, p := range []string{e.recipientPath, e.identityPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

type ageDecryptor struct {
	identities []age.Identity
}

func (d *ageDecryptor) Decrypt(r io.Reader, w io.Writer) error {
	dr, err := age.Decrypt(r, d.identities...)
	if err != nil {
		return fmt.Errorf("opening ciphertext: %w", err)
	}
	if _, err := io.Copy(w, dr); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}
