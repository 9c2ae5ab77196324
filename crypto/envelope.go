// Package crypto implements the self-describing, versioned encryption
// envelope used to seal key material and manifest values at rest.
package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/dotsetlabs/axion/axerrors"
	"github.com/dotsetlabs/axion/logging"
	"github.com/dotsetlabs/axion/metrics"
)

// CurrentVersion is the highest envelope version this build understands.
// Decrypt rejects envelopes with a newer Version so that a forward-compatible
// manifest never gets silently mishandled by an older agent build.
const CurrentVersion = 1

// ivSize is the 16-byte (128-bit) IV used as the GCM nonce. Encrypt and
// Decrypt build the AEAD with cipher.NewGCMWithNonceSize so the standard
// library accepts a nonce of this length.
const ivSize = 16

const saltSize = 32

// KDFParams captures the Argon2id tuning parameters embedded in every
// envelope, so a future build can raise the cost factors without breaking
// decryption of envelopes written under the old parameters.
type KDFParams struct {
	MemoryKiB   uint32 `json:"memory_kib"`
	Iterations  uint32 `json:"iterations"`
	Parallelism uint8  `json:"parallelism"`
	KeyLen      uint32 `json:"key_len"`
}

// DefaultKDFParams returns the OWASP-floor Argon2id parameters used for all
// new envelopes.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		MemoryKiB:   65536,
		Iterations:  3,
		Parallelism: 4,
		KeyLen:      32,
	}
}

// Derive runs Argon2id over password and salt with the given params.
func Derive(password, salt []byte, params KDFParams) []byte {
	start := time.Now()
	key := argon2.IDKey(password, salt, params.Iterations, params.MemoryKiB, params.Parallelism, params.KeyLen)
	metrics.Global().RecordKDF(time.Since(start))
	return key
}

// Envelope is the self-describing, versioned ciphertext container persisted
// to disk and exchanged with the remote sync endpoint. Every binary field is
// hex-encoded in its JSON form so envelopes are diffable as plain text.
type Envelope struct {
	Version   int       `json:"version"`
	KDF       string    `json:"kdf"`
	KDFParams KDFParams `json:"kdf_params"`
	IV        []byte    `json:"iv"`
	Salt      []byte    `json:"salt"`
	AuthTag   []byte    `json:"auth_tag"`
	Content   []byte    `json:"content"`
}

// envelopeWire is the hex-string mirror of Envelope used for JSON marshaling.
type envelopeWire struct {
	Version   int       `json:"version"`
	KDF       string    `json:"kdf"`
	KDFParams KDFParams `json:"kdf_params"`
	IV        string    `json:"iv"`
	Salt      string    `json:"salt"`
	AuthTag   string    `json:"auth_tag"`
	Content   string    `json:"content"`
}

// MarshalJSON renders every binary field as a lowercase hex string.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeWire{
		Version:   e.Version,
		KDF:       e.KDF,
		KDFParams: e.KDFParams,
		IV:        hex.EncodeToString(e.IV),
		Salt:      hex.EncodeToString(e.Salt),
		AuthTag:   hex.EncodeToString(e.AuthTag),
		Content:   hex.EncodeToString(e.Content),
	})
}

// UnmarshalJSON parses the hex-string wire form back into an Envelope.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var wire envelopeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}

	iv, err := hex.DecodeString(wire.IV)
	if err != nil {
		return fmt.Errorf("decode iv: %w", err)
	}
	salt, err := hex.DecodeString(wire.Salt)
	if err != nil {
		return fmt.Errorf("decode salt: %w", err)
	}
	authTag, err := hex.DecodeString(wire.AuthTag)
	if err != nil {
		return fmt.Errorf("decode auth_tag: %w", err)
	}
	content, err := hex.DecodeString(wire.Content)
	if err != nil {
		return fmt.Errorf("decode content: %w", err)
	}

	e.Version = wire.Version
	e.KDF = wire.KDF
	e.KDFParams = wire.KDFParams
	e.IV = iv
	e.Salt = salt
	e.AuthTag = authTag
	e.Content = content
	return nil
}

// Encrypt seals plaintext under a key derived from password, producing a
// self-describing envelope with fresh random IV and salt.
func Encrypt(plaintext, password []byte) (env *Envelope, err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.Global().RecordEncrypt(status)
		logging.Default().LogCryptoOperation(context.Background(), "encrypt", err == nil, err)
	}()

	params := DefaultKDFParams()

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, axerrors.Wrap(axerrors.KindNotInitialised, "read salt", err)
	}

	key := Derive(password, salt, params)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, axerrors.Wrap(axerrors.KindNotInitialised, "new cipher", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, axerrors.Wrap(axerrors.KindNotInitialised, "new gcm", err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, axerrors.Wrap(axerrors.KindNotInitialised, "read iv", err)
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)
	content := sealed[:len(sealed)-aead.Overhead()]
	authTag := sealed[len(sealed)-aead.Overhead():]

	return &Envelope{
		Version:   CurrentVersion,
		KDF:       "argon2id",
		KDFParams: params,
		IV:        iv,
		Salt:      salt,
		AuthTag:   authTag,
		Content:   content,
	}, nil
}

// Decrypt opens an envelope previously produced by Encrypt.
//
// A version newer than CurrentVersion is rejected outright so an older agent
// build never attempts to interpret ciphertext it cannot safely parse. A
// failed GCM tag check is reported as an authentication failure rather than a
// generic decrypt error, since it almost always means the password is wrong.
func Decrypt(env *Envelope, password []byte) (plaintext []byte, err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.Global().RecordDecrypt(status)
		logging.Default().LogCryptoOperation(context.Background(), "decrypt", err == nil, err)
	}()

	if env.Version > CurrentVersion {
		return nil, axerrors.UnsupportedVersion(env.Version, CurrentVersion)
	}

	key := Derive(password, env.Salt, env.KDFParams)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, axerrors.Wrap(axerrors.KindNotInitialised, "new cipher", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, axerrors.Wrap(axerrors.KindNotInitialised, "new gcm", err)
	}

	sealed := make([]byte, 0, len(env.Content)+len(env.AuthTag))
	sealed = append(sealed, env.Content...)
	sealed = append(sealed, env.AuthTag...)

	plaintext, err = aead.Open(nil, env.IV, sealed, nil)
	if err != nil {
		return nil, axerrors.AuthenticationFailed(err)
	}
	return plaintext, nil
}

// Fingerprint returns the leading 64 bits of SHA-256(key) as a hex string.
// It identifies a key without revealing it, and is safe to log, display, or
// transmit alongside encrypted content.
func Fingerprint(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:8])
}
