// Package snapshot copies the listings store off the host.
//
// A push copies the live store with VACUUM INTO, encrypts the copy and
// stores it in a vault under <host>/store with a version one above the
// version already there. A pull fetches the latest snapshot and decrypts it
// to a local file, which can then be opened as a store.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"tvp-go/internal/database"
	"tvp-go/internal/tv"
)

// Name is the vault object name snapshots are stored under.
const Name = "store"

// Service pushes and pulls snapshots of one host's store.
type Service struct {
	db        *database.DB
	vault     tv.Vault
	encryptor tv.Encryptor
	hostID    string
	log       tv.Logger
}

// NewService creates a snapshot service. log may be nil.
func NewService(db *database.DB, v tv.Vault, enc tv.Encryptor, hostID string, log tv.Logger) *Service {
	if log == nil {
		log = tv.NewNopLogger()
	}
	return &Service{db: db, vault: v, encryptor: enc, hostID: hostID, log: log}
}

// RemoteVersion returns the version of the stored snapshot, 0 if none.
func (s *Service) RemoteVersion() (int64, error) {
	v, err := s.vault.SnapshotVersion(s.hostID, Name)
	if err != nil {
		return 0, fmt.Errorf("checking snapshot version: %w", err)
	}
	return v, nil
}

// Push stores an encrypted copy of the store and returns its version.
func (s *Service) Push(ctx context.Context) (int64, error) {
	previous, err := s.RemoteVersion()
	if err != nil {
		return 0, err
	}

	dir, err := os.MkdirTemp("", "tvp-snapshot-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	plainPath := filepath.Join(dir, "store.db")
	if err := s.db.BackupTo(ctx, plainPath); err != nil {
		return 0, err
	}

	encPath := filepath.Join(dir, "store.enc")
	if err := s.encryptFile(plainPath, encPath); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := os.Open(encPath)
	if err != nil {
		return 0, fmt.Errorf("opening encrypted snapshot: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat encrypted snapshot: %w", err)
	}

	version := previous + 1
	if err := s.vault.PutSnapshot(s.hostID, Name, f, info.Size(), version); err != nil {
		return 0, fmt.Errorf("uploading snapshot: %w", err)
	}

	s.log.Info("snapshot pushed", "host", s.hostID, "version", version, "bytes", info.Size())
	return version, nil
}

// Pull fetches the latest snapshot, decrypts it with dc and writes it to
// dest. dest is replaced atomically and only once decryption succeeded.
func (s *Service) Pull(ctx context.Context, dc tv.DecryptionContext, dest string) (int64, error) {
	version, err := s.RemoteVersion()
	if err != nil {
		return 0, err
	}
	if version == 0 {
		return 0, fmt.Errorf("no snapshot stored for host %s", s.hostID)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return 0, fmt.Errorf("creating destination directory: %w", err)
	}

	enc, err := os.CreateTemp(filepath.Dir(dest), ".tvp-pull-*.enc")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(enc.Name())
	defer enc.Close()

	if err := s.vault.GetSnapshot(s.hostID, Name, enc); err != nil {
		return 0, fmt.Errorf("downloading snapshot: %w", err)
	}
	if _, err := enc.Seek(0, 0); err != nil {
		return 0, fmt.Errorf("rewinding snapshot: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tmp := dest + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", tmp, err)
	}
	if err := dc.Decrypt(enc, out); err != nil {
		out.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("decrypting snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("replacing %s: %w", dest, err)
	}

	s.log.Info("snapshot pulled", "host", s.hostID, "version", version, "dest", dest)
	return version, nil
}

func (s *Service) encryptFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening store copy: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating encrypted snapshot: %w", err)
	}
	if err := s.encryptor.Encrypt(in, out); err != nil {
		out.Close()
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing encrypted snapshot: %w", err)
	}
	return nil
}
