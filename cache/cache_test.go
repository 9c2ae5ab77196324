package cache

import (
	"testing"
	"time"
)

func TestTypedCache_SetGet(t *testing.T) {
	c := NewTypedCache[map[string]string](CacheConfig{DefaultTTL: time.Minute})

	vars := map[string]string{"API_KEY": "secret"}
	c.Set("k1", vars, 0)

	got, ok := c.Get("k1")
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got["API_KEY"] != "secret" {
		t.Errorf("Get()[API_KEY] = %q, want secret", got["API_KEY"])
	}
}

func TestTypedCache_MissReturnsZeroValue(t *testing.T) {
	c := NewTypedCache[map[string]string](CacheConfig{DefaultTTL: time.Minute})

	got, ok := c.Get("missing")
	if ok {
		t.Error("Get() ok = true for missing key, want false")
	}
	if got != nil {
		t.Errorf("Get() on miss = %v, want nil zero value", got)
	}
}

func TestTypedCache_Invalidate(t *testing.T) {
	c := NewTypedCache[map[string]string](CacheConfig{DefaultTTL: time.Minute})

	c.Set("k1", map[string]string{"A": "1"}, 0)
	c.Invalidate("k1")

	if _, ok := c.Get("k1"); ok {
		t.Error("Get() after Invalidate() = true, want false")
	}
}

func TestTypedCache_InvalidateAll(t *testing.T) {
	c := NewTypedCache[map[string]string](CacheConfig{DefaultTTL: time.Minute})

	c.Set("k1", map[string]string{"A": "1"}, 0)
	c.Set("k2", map[string]string{"B": "2"}, 0)
	c.InvalidateAll()

	if _, ok := c.Get("k1"); ok {
		t.Error("k1 survived InvalidateAll()")
	}
	if _, ok := c.Get("k2"); ok {
		t.Error("k2 survived InvalidateAll()")
	}
}
