// Package keystore manages the project's master key file: a 128-bit random
// key stored with owner-only permissions beneath the project config
// directory. Rotation is orchestrated by the manifest package; keystore only
// provides the primitive generate/save/load/backup operations it composes.
package keystore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dotsetlabs/axion/axerrors"
	dscrypto "github.com/dotsetlabs/axion/crypto"
	axhex "github.com/dotsetlabs/axion/hex"
)

const (
	keyFileName = "key"
	keySize     = 16
	dirMode     = 0o700
	fileMode    = 0o600
)

// Store manages the master key file beneath a project's config directory.
// Dir is dependency-injected rather than derived from the process working
// directory, so a single process can manage multiple projects concurrently
// and tests never depend on os.Getwd.
type Store struct {
	Dir string
}

// New returns a Store bound to dir. dir is created on first Save if absent.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path() string {
	return filepath.Join(s.Dir, keyFileName)
}

// Generate returns a fresh random 128-bit key. It does not persist it.
func Generate() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, axerrors.Wrap(axerrors.KindNotInitialised, "generate key", err)
	}
	return key, nil
}

// KeyHexLen is the length of a hex-encoded 128-bit key: 32 characters.
const KeyHexLen = keySize * 2

// ParseKeyHex validates and decodes an operator-supplied replacement key for
// rotation. It accepts an optional "0x" prefix and must decode to exactly
// keySize bytes (32 hex characters), the same format Save/Load persist.
func ParseKeyHex(s string) ([]byte, error) {
	normalized := axhex.Normalize(s)
	if len(normalized) != KeyHexLen {
		return nil, axerrors.ValidationFailed("key", fmt.Sprintf("must be %d hex characters, got %d", KeyHexLen, len(normalized)))
	}
	key, err := axhex.DecodeString(normalized)
	if err != nil {
		return nil, axerrors.Wrap(axerrors.KindValidationFailed, "decode supplied key", err)
	}
	return key, nil
}

// Save atomically writes key to disk beneath a 0700 directory, as a 0600
// file. It writes to a temp file in the same directory and renames over the
// target so a crash mid-write never leaves a partially-written key file.
func (s *Store) Save(key []byte) error {
	if err := os.MkdirAll(s.Dir, dirMode); err != nil {
		return axerrors.Wrap(axerrors.KindNotInitialised, "create key directory", err)
	}

	target := s.path()
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, []byte(hex.EncodeToString(key)), fileMode); err != nil {
		return axerrors.Wrap(axerrors.KindNotInitialised, "write temp key file", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return axerrors.Wrap(axerrors.KindNotInitialised, "rename key file into place", err)
	}
	return nil
}

// Load reads the master key from disk. A missing key file is reported as
// KindNotInitialised, since every other operation depends on a key existing
// first.
func (s *Store) Load() ([]byte, error) {
	raw, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, axerrors.NotInitialised("key store has not been initialised")
		}
		return nil, axerrors.Wrap(axerrors.KindNotInitialised, "read key file", err)
	}

	key, err := hex.DecodeString(string(raw))
	if err != nil {
		return nil, axerrors.Wrap(axerrors.KindValidationFailed, "decode key file contents", err)
	}
	return key, nil
}

// Backup copies the current key file to a sibling path (key.bak), returning
// the backup path. Callers (manifest.Rotate) use this to make rotation
// recoverable: if any later rotation step fails, the backup can be restored.
func (s *Store) Backup() (string, error) {
	key, err := s.Load()
	if err != nil {
		return "", err
	}

	backupPath := s.path() + ".bak"
	if err := os.WriteFile(backupPath, []byte(hex.EncodeToString(key)), fileMode); err != nil {
		return "", axerrors.Wrap(axerrors.KindNotInitialised, "write key backup", err)
	}
	return backupPath, nil
}

// RestoreBackup overwrites the current key file with the contents of
// backupPath, used to roll back a failed rotation.
func (s *Store) RestoreBackup(backupPath string) error {
	raw, err := os.ReadFile(backupPath)
	if err != nil {
		return axerrors.Wrap(axerrors.KindNotInitialised, "read key backup", err)
	}
	if err := os.WriteFile(s.path(), raw, fileMode); err != nil {
		return axerrors.Wrap(axerrors.KindNotInitialised, "restore key backup", err)
	}
	return nil
}

// RemoveBackup deletes a backup file created by Backup, once rotation has
// committed successfully.
func (s *Store) RemoveBackup(backupPath string) error {
	if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove key backup: %w", err)
	}
	return nil
}

// Fingerprint returns the leading 64 bits of SHA-256(key), hex-encoded. It is
// safe to log, display, or transmit: it identifies a key without revealing
// it.
func Fingerprint(key []byte) string {
	return dscrypto.Fingerprint(key)
}

// Show returns the hex-encoded master key, for explicit operator reveal.
func (s *Store) Show() (string, error) {
	key, err := s.Load()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}
