package sdk

import (
	"fmt"
	"sync"
	"time"

	dscache "github.com/dotsetlabs/axion/cache"
)

// permanentTTL models a TTL-less process cache (spec.md §4.6) on top of
// dscache.TypedCache, whose entries always carry an expiration. A century
// is effectively forever for a cache whose lifetime is one process.
const permanentTTL = 100 * 365 * 24 * time.Hour

var (
	cacheOnce   sync.Once
	sharedCache *dscache.TypedCache[map[string]string]
)

func globalCache() *dscache.TypedCache[map[string]string] {
	cacheOnce.Do(func() {
		sharedCache = dscache.NewTypedCache[map[string]string](dscache.CacheConfig{DefaultTTL: permanentTTL})
	})
	return sharedCache
}

// cacheKey identifies a resolved-variable set by its three binding
// coordinates, per spec.md §4.6.
func cacheKey(workDir, service, scope string) string {
	return fmt.Sprintf("%s\x00%s\x00%s", workDir, service, scope)
}

// resetCache drops the shared process cache; used by tests that need a
// clean slate between CreateClient/GetSecrets calls.
func resetCache() {
	cacheOnce = sync.Once{}
	sharedCache = nil
}
