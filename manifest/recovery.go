package manifest

import (
	"encoding/base64"
	"encoding/json"

	"github.com/dotsetlabs/axion/axerrors"
	dscrypto "github.com/dotsetlabs/axion/crypto"
)

// RecoverySetup seals the project's current master key under a
// recovery password, returning a base64-encoded envelope an operator can
// store offline (a password manager, a printed sheet) and later use to
// recover access if the key file itself is lost.
func RecoverySetup(store *Store, password string) (string, error) {
	key, err := store.Keystore.Load()
	if err != nil {
		return "", err
	}

	env, err := dscrypto.Encrypt(key, []byte(password))
	if err != nil {
		return "", err
	}

	wire, err := json.Marshal(env)
	if err != nil {
		return "", axerrors.Wrap(axerrors.KindValidationFailed, "marshal recovery envelope", err)
	}
	return base64.StdEncoding.EncodeToString(wire), nil
}

// RecoveryRestore decodes and decrypts a recovery blob produced by
// RecoverySetup and installs the recovered key as the project's master key,
// overwriting whatever key file (if any) is currently in place.
func RecoveryRestore(store *Store, password, blob string) error {
	wire, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return axerrors.Wrap(axerrors.KindValidationFailed, "decode recovery blob", err)
	}

	var env dscrypto.Envelope
	if err := json.Unmarshal(wire, &env); err != nil {
		return axerrors.Wrap(axerrors.KindValidationFailed, "parse recovery envelope", err)
	}

	key, err := dscrypto.Decrypt(&env, []byte(password))
	if err != nil {
		return err
	}

	return store.Keystore.Save(key)
}
