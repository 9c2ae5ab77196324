package sdk

import (
	"context"
	"os"
)

// GetSecrets resolves and returns a defensive copy of the variables visible
// to opts.Service within opts.Scope, rooted at opts.WorkDir.
func GetSecrets(ctx context.Context, opts Options) (map[string]string, error) {
	return CreateClient(opts).GetAll(ctx)
}

// LoadSecrets resolves opts and writes the result into the ambient process
// environment via os.Setenv, preserving any variable already set unless
// opts.Overwrite is true.
func LoadSecrets(ctx context.Context, opts Options) error {
	vars, err := GetSecrets(ctx, opts)
	if err != nil {
		return err
	}
	for k, v := range vars {
		if !opts.Overwrite {
			if _, exists := os.LookupEnv(k); exists {
				continue
			}
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}

// ClearCache invalidates every cached resolution across every
// (workDir, service, scope) triple.
func ClearCache() {
	globalCache().InvalidateAll()
}

// ClearCacheFor invalidates the cached resolution for one
// (workDir, service, scope) triple.
func ClearCacheFor(workDir, service, scope string) {
	globalCache().Invalidate(cacheKey(workDir, service, scope))
}
