// Package axerrors provides a single tagged-sum error type for the core.
package axerrors

import (
	"errors"
	"fmt"
)

// AxionErrorKind classifies the kind of failure an AxionError represents.
type AxionErrorKind string

const (
	KindNotInitialised       AxionErrorKind = "NOT_INITIALISED"
	KindAuthenticationFailed AxionErrorKind = "AUTHENTICATION_FAILED"
	KindUnsupportedVersion   AxionErrorKind = "UNSUPPORTED_VERSION"
	KindValidationFailed     AxionErrorKind = "VALIDATION_FAILED"
	KindMissingReference     AxionErrorKind = "MISSING_REFERENCE"
	KindCircularReference    AxionErrorKind = "CIRCULAR_REFERENCE"
	KindVerificationFailed   AxionErrorKind = "VERIFICATION_FAILED"
	KindKeyMismatch          AxionErrorKind = "KEY_MISMATCH"
	KindNetworkUnreachable   AxionErrorKind = "NETWORK_UNREACHABLE"
	KindSpawnFailed          AxionErrorKind = "SPAWN_FAILED"
)

// AxionError is the single structured error type raised across the core.
type AxionError struct {
	Kind    AxionErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AxionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *AxionError) Unwrap() error {
	return e.Err
}

// New creates a new AxionError with no wrapped cause.
func New(kind AxionErrorKind, message string) *AxionError {
	return &AxionError{Kind: kind, Message: message}
}

// Wrap creates a new AxionError wrapping an existing error.
func Wrap(kind AxionErrorKind, message string, err error) *AxionError {
	return &AxionError{Kind: kind, Message: message, Err: err}
}

// RotationError is raised when key rotation fails after the key file has
// already been backed up, carrying the backup path so callers can attempt
// manual recovery if the automatic rollback in manifest.Rotate also fails.
type RotationError struct {
	AxionError
	BackupPath string
}

// Error implements the error interface.
func (e *RotationError) Error() string {
	return fmt.Sprintf("%s (backup at %s)", e.AxionError.Error(), e.BackupPath)
}

// NewRotationError wraps err into a RotationError carrying backupPath.
func NewRotationError(kind AxionErrorKind, message string, err error, backupPath string) *RotationError {
	return &RotationError{
		AxionError: AxionError{Kind: kind, Message: message, Err: err},
		BackupPath: backupPath,
	}
}

// Convenience constructors, one per kind.

func NotInitialised(message string) *AxionError {
	return New(KindNotInitialised, message)
}

func AuthenticationFailed(err error) *AxionError {
	return Wrap(KindAuthenticationFailed, "authentication failed", err)
}

func UnsupportedVersion(version, current int) *AxionError {
	return New(KindUnsupportedVersion, fmt.Sprintf("envelope version %d is newer than supported version %d", version, current))
}

func ValidationFailed(field, reason string) *AxionError {
	return New(KindValidationFailed, fmt.Sprintf("%s: %s", field, reason))
}

func MissingReference(name string) *AxionError {
	return New(KindMissingReference, fmt.Sprintf("reference to undefined variable %q", name))
}

func CircularReference(chain []string) *AxionError {
	return New(KindCircularReference, fmt.Sprintf("circular template reference: %v", chain))
}

func VerificationFailed(message string) *AxionError {
	return New(KindVerificationFailed, message)
}

func KeyMismatch(message string) *AxionError {
	return New(KindKeyMismatch, message)
}

func NetworkUnreachable(err error) *AxionError {
	return Wrap(KindNetworkUnreachable, "remote sync endpoint unreachable", err)
}

func SpawnFailed(err error) *AxionError {
	return Wrap(KindSpawnFailed, "failed to spawn child process", err)
}

// Is reports whether err is an *AxionError of the given kind.
func Is(err error, kind AxionErrorKind) bool {
	var axErr *AxionError
	if errors.As(err, &axErr) {
		return axErr.Kind == kind
	}
	return false
}

// As extracts an *AxionError from err's chain, if present.
func As(err error) (*AxionError, bool) {
	var axErr *AxionError
	if errors.As(err, &axErr) {
		return axErr, true
	}
	return nil, false
}
