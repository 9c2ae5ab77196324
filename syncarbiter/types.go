// Package syncarbiter reconciles a project's local manifest against its
// cloud replica: version-based conflict resolution on load, best-effort
// push on save. It never merges content.
package syncarbiter

import (
	"context"
	"time"
)

// CloudRecord is the remote envelope as returned by fetchManifest/
// uploadManifest: an encrypted manifest plus the bookkeeping the arbiter
// needs to pick a winner without decrypting anything it doesn't own.
type CloudRecord struct {
	EncryptedData string
	Version       int64
	UpdatedAt     time.Time
	UpdatedBy     string
	KeyFingerprint string
}

// HistoryEntry is one row of a project's rotation/version history, exposed
// for the CLI layer's rollback workflow.
type HistoryEntry struct {
	Version        int64
	UpdatedAt      time.Time
	UpdatedBy      string
	KeyFingerprint string
}

// RemoteClient is the opaque transport boundary to the cloud API (spec §6).
// Arbiter depends only on this interface so tests can inject a fake.
type RemoteClient interface {
	FetchManifest(ctx context.Context, projectID string) (*CloudRecord, error)
	UploadManifest(ctx context.Context, projectID string, rec CloudRecord) error
	Heartbeat(ctx context.Context, projectID string) error
	FetchHistory(ctx context.Context, projectID string) ([]HistoryEntry, error)
	Rollback(ctx context.Context, projectID string, version int64) error
}
