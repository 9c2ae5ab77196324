package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dotsetlabs/axion/axerrors"
	dscrypto "github.com/dotsetlabs/axion/crypto"
	"github.com/dotsetlabs/axion/keystore"
)

const manifestFileName = "manifest.enc"

const manifestFileMode = 0o644

// Store reads and writes the encrypted manifest file beneath a project's
// config directory, using the project's keystore for the encryption key.
type Store struct {
	Dir      string
	Keystore *keystore.Store
}

// NewStore returns a Store bound to dir, wiring up its own keystore.Store
// for the same directory.
func NewStore(dir string) *Store {
	return &Store{Dir: dir, Keystore: keystore.New(dir)}
}

func (s *Store) path() string {
	return filepath.Join(s.Dir, manifestFileName)
}

// Load reads and decrypts the manifest file. A manifest file that does not
// yet exist is not an error: Load returns (nil, nil), matching the sync
// arbiter's "local = null" boundary case for a project that has been
// initialised (key present) but never saved.
func (s *Store) Load() (*Manifest, error) {
	raw, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, axerrors.Wrap(axerrors.KindNotInitialised, "read manifest file", err)
	}

	var env dscrypto.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, axerrors.Wrap(axerrors.KindValidationFailed, "parse manifest envelope", err)
	}

	key, err := s.Keystore.Load()
	if err != nil {
		return nil, err
	}

	plaintext, err := dscrypto.Decrypt(&env, key)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(plaintext, &m); err != nil {
		return nil, axerrors.Wrap(axerrors.KindValidationFailed, "parse decrypted manifest", err)
	}
	return &m, nil
}

// Save encrypts m under the project's current key and writes it to disk.
//
// encoding/json sorts map[string]... keys alphabetically on marshal, so
// saving an unchanged manifest twice produces byte-identical plaintext; only
// the envelope's fresh IV and salt vary between saves.
func (s *Store) Save(m *Manifest) error {
	key, err := s.Keystore.Load()
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(m)
	if err != nil {
		return axerrors.Wrap(axerrors.KindValidationFailed, "marshal manifest", err)
	}

	env, err := dscrypto.Encrypt(plaintext, key)
	if err != nil {
		return err
	}

	wire, err := json.Marshal(env)
	if err != nil {
		return axerrors.Wrap(axerrors.KindValidationFailed, "marshal manifest envelope", err)
	}

	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return axerrors.Wrap(axerrors.KindNotInitialised, "create config directory", err)
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, wire, manifestFileMode); err != nil {
		return axerrors.Wrap(axerrors.KindNotInitialised, "write temp manifest file", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		_ = os.Remove(tmp)
		return axerrors.Wrap(axerrors.KindNotInitialised, "rename manifest file into place", err)
	}
	return nil
}

// Init creates the project's key and an empty manifest, if neither already
// exists. It returns the manifest (existing or newly created).
func (s *Store) Init() (*Manifest, error) {
	if _, err := s.Keystore.Load(); err != nil {
		if !axerrors.Is(err, axerrors.KindNotInitialised) {
			return nil, err
		}
		key, genErr := keystore.Generate()
		if genErr != nil {
			return nil, genErr
		}
		if err := s.Keystore.Save(key); err != nil {
			return nil, err
		}
	}

	existing, err := s.Load()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	fresh := New()
	if err := s.Save(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}
