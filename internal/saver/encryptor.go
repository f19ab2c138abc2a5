package saver

import "io"

// Encryptor protects mirrored snapshot content. Encryption needs only the
// public key, so backups never prompt. Reading a mirrored snapshot back needs
// the passphrase that protects the private key.
type Encryptor interface {
	// Setup generates a key pair once, storing the private key encrypted with
	// passphrase.
	Setup(passphrase string) error

	// Encrypt writes the ciphertext of r to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a context able to decrypt
	// mirrored content. A wrong passphrase is an error.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for one session.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
