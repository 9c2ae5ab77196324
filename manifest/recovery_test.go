package manifest

import (
	"testing"

	"github.com/dotsetlabs/axion/axerrors"
)

func TestRecoverySetupAndRestore(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if _, err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	originalKey, err := store.Keystore.Load()
	if err != nil {
		t.Fatalf("load original key error = %v", err)
	}

	blob, err := RecoverySetup(store, "correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("RecoverySetup() error = %v", err)
	}
	if blob == "" {
		t.Fatal("RecoverySetup() returned empty blob")
	}

	// Simulate the key file being lost or replaced.
	if err := store.Keystore.Save([]byte("0123456789abcdef")); err != nil {
		t.Fatalf("simulate key loss error = %v", err)
	}

	if err := RecoveryRestore(store, "correct-horse-battery-staple", blob); err != nil {
		t.Fatalf("RecoveryRestore() error = %v", err)
	}

	restoredKey, err := store.Keystore.Load()
	if err != nil {
		t.Fatalf("load restored key error = %v", err)
	}
	if string(restoredKey) != string(originalKey) {
		t.Error("RecoveryRestore() did not recover the original key")
	}
}

func TestRecoveryRestore_WrongPasswordFails(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if _, err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	blob, err := RecoverySetup(store, "right-password")
	if err != nil {
		t.Fatalf("RecoverySetup() error = %v", err)
	}

	err = RecoveryRestore(store, "wrong-password", blob)
	if !axerrors.Is(err, axerrors.KindAuthenticationFailed) {
		t.Errorf("RecoveryRestore(wrong password) = %v, want KindAuthenticationFailed", err)
	}
}

func TestRecoveryRestore_MalformedBlobFails(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if _, err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	err := RecoveryRestore(store, "password", "not-valid-base64!!!")
	if !axerrors.Is(err, axerrors.KindValidationFailed) {
		t.Errorf("RecoveryRestore(malformed blob) = %v, want KindValidationFailed", err)
	}
}
