package tv

import "io"

// Encryptor protects snapshots before they leave the host.
// Encryption uses the public key only; decryption requires unlocking the
// private key with a passphrase, which yields a DecryptionContext.
type Encryptor interface {
	// Setup performs one-time key generation. Called during `tvp config init`.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase.
	// Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist at configured paths.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for one session.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
