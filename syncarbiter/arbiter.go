package syncarbiter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dotsetlabs/axion/axerrors"
	dscrypto "github.com/dotsetlabs/axion/crypto"
	"github.com/dotsetlabs/axion/keystore"
	"github.com/dotsetlabs/axion/logging"
	"github.com/dotsetlabs/axion/manifest"
	"github.com/dotsetlabs/axion/metrics"
)

// Arbiter reconciles a project's local manifest with its cloud replica. It
// never merges content; conflict resolution is by version number only
// (spec.md §4.4). Finer-grained reconciliation (push, pull, drift, explicit
// rollback) is the CLI layer's job, built directly on RemoteClient.
type Arbiter struct {
	ProjectID string
	CloudLinked bool
	Store     *manifest.Store
	Remote    RemoteClient
	Logger    *logging.Logger
}

// NewArbiter wires a local manifest store to an optional remote. If remote
// is nil, the project behaves as local-only: Load never consults the cloud
// and Save never attempts an upload.
func NewArbiter(projectID string, store *manifest.Store, remote RemoteClient, logger *logging.Logger) *Arbiter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Arbiter{
		ProjectID:   projectID,
		CloudLinked: remote != nil,
		Store:       store,
		Remote:      remote,
		Logger:      logger,
	}
}

// Load implements spec.md §4.4 "On load" steps 1-3: read local ciphertext
// (swallowing anything but a clean not-found into local = nil with a logged
// warning), best-effort heartbeat + fetch the cloud replica, then pick a
// winner by version.
func (a *Arbiter) Load(ctx context.Context) (*manifest.Manifest, error) {
	start := time.Now()

	local, err := a.Store.Load()
	if err != nil {
		a.Logger.Warn(ctx, "local manifest read failed, proceeding as if absent", map[string]interface{}{
			"error": err.Error(),
		})
		local = nil
	}

	cloud := a.fetchCloud(ctx)
	if local != nil && cloud != nil && local.Version != cloud.Version {
		metrics.Global().RecordSyncConflict()
	}

	metrics.Global().RecordSync("pull", "success", time.Since(start))
	return pickWinner(local, cloud), nil
}

// fetchCloud performs the best-effort heartbeat + fetch + decrypt sequence,
// returning nil on any failure (network, decode, or decrypt) rather than
// propagating it: a cloud hiccup must never block a local read.
func (a *Arbiter) fetchCloud(ctx context.Context) *manifest.Manifest {
	if !a.CloudLinked {
		return nil
	}

	if err := a.Remote.Heartbeat(ctx, a.ProjectID); err != nil {
		a.Logger.Warn(ctx, "heartbeat failed", map[string]interface{}{"error": err.Error()})
	}

	record, err := a.Remote.FetchManifest(ctx, a.ProjectID)
	if err != nil {
		a.Logger.Warn(ctx, "cloud manifest fetch failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	if record == nil || record.EncryptedData == "" {
		return nil
	}

	key, err := a.Store.Keystore.Load()
	if err != nil {
		a.Logger.Warn(ctx, "local key unavailable, cannot decrypt cloud manifest", map[string]interface{}{"error": err.Error()})
		return nil
	}

	var env dscrypto.Envelope
	if err := json.Unmarshal([]byte(record.EncryptedData), &env); err != nil {
		a.Logger.Warn(ctx, "cloud manifest envelope malformed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	plaintext, err := dscrypto.Decrypt(&env, key)
	if err != nil {
		a.Logger.Warn(ctx, "cloud manifest decrypt failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	var m manifest.Manifest
	if err := json.Unmarshal(plaintext, &m); err != nil {
		a.Logger.Warn(ctx, "cloud manifest payload malformed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return &m
}

// pickWinner implements spec.md §4.4 step 3: higher version wins, ties
// resolve to cloud, and an absent side defers to whichever exists. It is a
// pure function so conflict resolution is independently testable
// (testable property 6).
func pickWinner(local, cloud *manifest.Manifest) *manifest.Manifest {
	switch {
	case local == nil && cloud == nil:
		return manifest.New()
	case local == nil:
		return cloud
	case cloud == nil:
		return local
	case cloud.Version >= local.Version:
		return cloud
	default:
		return local
	}
}

// Save implements spec.md §4.4 "On save": the local write is synchronous and
// authoritative. The cloud push, if the project is cloud-linked, runs
// through the remote's circuit breaker; its errors are logged but never
// returned, since the local write already succeeded (§9 Open Question
// resolution).
func (a *Arbiter) Save(ctx context.Context, m *manifest.Manifest) (err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.Global().RecordSync("push", status, time.Since(start))
	}()

	if err = a.Store.Save(m); err != nil {
		return err
	}

	if !a.CloudLinked {
		return nil
	}

	key, err := a.Store.Keystore.Load()
	if err != nil {
		a.Logger.LogSecurityEvent(ctx, "cloud_push_key_unavailable", map[string]interface{}{
			"project_id": a.ProjectID,
			"error":      err.Error(),
		})
		return nil
	}

	plaintext, err := json.Marshal(m)
	if err != nil {
		a.Logger.Warn(ctx, "marshal manifest for cloud push failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	env, err := dscrypto.Encrypt(plaintext, key)
	if err != nil {
		a.Logger.Warn(ctx, "encrypt manifest for cloud push failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	wire, err := json.Marshal(env)
	if err != nil {
		a.Logger.Warn(ctx, "marshal envelope for cloud push failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	record := CloudRecord{
		EncryptedData:  string(wire),
		Version:        m.Version,
		KeyFingerprint: keystore.Fingerprint(key),
	}

	if err := a.Remote.UploadManifest(ctx, a.ProjectID, record); err != nil {
		// A key-fingerprint mismatch on an implicit push is swallowed like any
		// other transport failure, but logged at high visibility per the Open
		// Question resolution in SPEC_FULL.md §9.
		if axerrors.Is(err, axerrors.KindKeyMismatch) {
			a.Logger.LogSecurityEvent(ctx, "cloud_push_key_mismatch", map[string]interface{}{
				"project_id": a.ProjectID,
			})
			return nil
		}
		a.Logger.Warn(ctx, "cloud manifest upload failed", map[string]interface{}{"error": err.Error()})
	}
	return nil
}
