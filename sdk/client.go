package sdk

import (
	"context"

	"github.com/dotsetlabs/axion/manifest"
	"github.com/dotsetlabs/axion/syncarbiter"
)

// Options binds the three coordinates the SDK surface resolves variables
// against, plus the behaviour flags used by LoadSecrets.
type Options struct {
	WorkDir   string
	Service   string
	Scope     manifest.Scope
	Overwrite bool

	// ProjectID and Remote configure cloud-linked resolution (spec.md §4.4).
	// When Remote is nil, the client behaves as local-only: resolution never
	// consults the cloud replica and reads the local manifest store
	// directly. When Remote is set, every resolve that misses the process
	// cache goes through a syncarbiter.Arbiter — heartbeat, fetch, and
	// version-based reconciliation against the local copy — before the
	// engine resolves scopes and templates. A cached result is returned
	// without consulting the remote until Reload or ClearCache drops it.
	ProjectID string
	Remote    syncarbiter.RemoteClient
}

// Client is a bound view over one (workDir, service, scope) triple, backed
// by the shared process-local cache.
type Client struct {
	service string
	scope   manifest.Scope
	key     string
	arbiter *syncarbiter.Arbiter
}

// CreateClient binds workDir/service/scope into a reusable Client. The
// underlying manifest read goes through a syncarbiter.Arbiter so a
// cloud-linked project (opts.Remote set) reconciles against its remote
// replica on every resolve that misses the process cache, not just on
// explicit sync commands.
func CreateClient(opts Options) *Client {
	store := manifest.NewStore(opts.WorkDir)
	arbiter := syncarbiter.NewArbiter(opts.ProjectID, store, opts.Remote, nil)
	return &Client{
		service: opts.Service,
		scope:   opts.Scope,
		key:     cacheKey(opts.WorkDir, opts.Service, string(opts.Scope)),
		arbiter: arbiter,
	}
}

// GetAll resolves and returns a defensive copy of every variable visible to
// this client's service within its scope.
func (c *Client) GetAll(ctx context.Context) (map[string]string, error) {
	return c.resolve(ctx)
}

// Get resolves key, reporting whether it was present.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	vars, err := c.resolve(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := vars[key]
	return v, ok, nil
}

// Has reports whether key is present without exposing its value.
func (c *Client) Has(ctx context.Context, key string) (bool, error) {
	vars, err := c.resolve(ctx)
	if err != nil {
		return false, err
	}
	_, ok := vars[key]
	return ok, nil
}

// Reload invalidates this client's cache entry and re-resolves from disk
// (and, for a cloud-linked project, the remote replica).
func (c *Client) Reload(ctx context.Context) (map[string]string, error) {
	globalCache().Invalidate(c.key)
	return c.resolve(ctx)
}

func (c *Client) resolve(ctx context.Context) (map[string]string, error) {
	if cached, ok := globalCache().Get(c.key); ok {
		return copyVars(cached), nil
	}

	m, err := c.arbiter.Load(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.New()
	}

	engine := manifest.NewEngine(m, nil)
	resolved, err := engine.GetVariables(c.service, c.scope)
	if err != nil {
		return nil, err
	}

	globalCache().Set(c.key, resolved, permanentTTL)
	return copyVars(resolved), nil
}

func copyVars(vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
