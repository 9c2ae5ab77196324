package manifest

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/dotsetlabs/axion/axerrors"
	"github.com/dotsetlabs/axion/keystore"
	"github.com/dotsetlabs/axion/logging"
	"github.com/dotsetlabs/axion/metrics"
)

// RotationState tracks progress through Rotate's crash-safe sequence so a
// caller inspecting a failed rotation knows exactly how far it got.
type RotationState string

const (
	StateIdle        RotationState = "idle"
	StateBackup      RotationState = "backup"
	StateKeyWritten  RotationState = "key_written"
	StateReencrypted RotationState = "reencrypted"
	StateVerified    RotationState = "verified"
	StateCommitted   RotationState = "committed"
)

// RotationResult reports the outcome of a successful rotation.
type RotationResult struct {
	State          RotationState
	NewFingerprint string
}

// Rotate replaces a project's master key and re-encrypts its manifest under
// the new key, following the state machine:
//
//	Idle -> Backup -> KeyWritten -> Reencrypted -> Verified -> Committed
//
// newKey supplies the replacement key as a 32-character hex string; an empty
// newKey generates a fresh random key instead. A supplied newKey that fails
// format validation aborts the rotation before anything on disk changes.
//
// The old key is backed up to a file and the manifest ciphertext is kept in
// memory before anything is overwritten. If any step after the backup fails,
// Rotate restores the old key from that backup and writes the prior manifest
// bytes back (or removes a manifest file that did not exist before), so the
// project is left exactly as it was before Rotate was called. If the
// restore itself fails, Rotate returns an *axerrors.RotationError carrying
// the backup path so an operator can restore it by hand.
func Rotate(store *Store, newKey string) (result *RotationResult, err error) {
	start := time.Now()
	defer func() {
		outcome := "failure"
		if err == nil {
			outcome = "success"
		}
		metrics.Global().RecordRotation(outcome, time.Since(start))
		logging.Default().LogAudit(context.Background(), "rotate", "master_key", store.Dir, outcome)
	}()

	var resolvedKey []byte
	if newKey == "" {
		resolvedKey, err = keystore.Generate()
	} else {
		resolvedKey, err = keystore.ParseKeyHex(newKey)
	}
	if err != nil {
		return nil, err
	}

	ks := store.Keystore
	state := StateIdle

	backupPath, err := ks.Backup()
	if err != nil {
		return nil, err
	}
	state = StateBackup

	priorCiphertext, readErr := os.ReadFile(store.path())
	hadManifest := readErr == nil

	rollback := func(cause error) (*RotationResult, error) {
		restoreErr := ks.RestoreBackup(backupPath)
		if restoreErr == nil {
			if hadManifest {
				restoreErr = os.WriteFile(store.path(), priorCiphertext, manifestFileMode)
			} else if rmErr := os.Remove(store.path()); rmErr != nil && !os.IsNotExist(rmErr) {
				restoreErr = rmErr
			}
		}
		if restoreErr != nil {
			logging.Default().LogErrorWithStack(context.Background(), restoreErr,
				"key rotation rollback failed, manual recovery required", map[string]interface{}{
					"backup_path": backupPath,
					"cause":       cause.Error(),
				})
			return nil, axerrors.NewRotationError(
				axerrors.KindVerificationFailed,
				"rotation failed and automatic rollback also failed",
				cause,
				backupPath,
			)
		}
		return nil, cause
	}

	original, err := store.Load()
	if err != nil {
		return rollback(err)
	}
	if original == nil {
		original = New()
	}

	if err := ks.Save(resolvedKey); err != nil {
		return rollback(err)
	}
	state = StateKeyWritten

	if err := store.Save(original); err != nil {
		return rollback(err)
	}
	state = StateReencrypted

	reloaded, err := store.Load()
	if err != nil {
		return rollback(err)
	}
	if !manifestsEqual(original, reloaded) {
		return rollback(axerrors.VerificationFailed("rotated manifest did not verify against its pre-rotation state"))
	}
	state = StateVerified

	if err := ks.RemoveBackup(backupPath); err != nil {
		return nil, axerrors.NewRotationError(axerrors.KindVerificationFailed, "rotation verified but backup cleanup failed", err, backupPath)
	}
	state = StateCommitted

	return &RotationResult{State: state, NewFingerprint: keystore.Fingerprint(resolvedKey)}, nil
}

// manifestsEqual compares two manifests by their canonical JSON encoding.
// encoding/json sorts map keys alphabetically, so this is a true structural
// comparison, not just a reference check.
func manifestsEqual(a, b *Manifest) bool {
	if a == nil || b == nil {
		return a == b
	}
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aJSON) == string(bJSON)
}
