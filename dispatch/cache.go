package dispatch

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Resolver resolves a handler set by (directory, name). Registry implements
// it directly; CachedResolver wraps it with a memoized, invalidate-able
// cache.
type Resolver interface {
	Resolve(directory, name string) (*HandlerSet, error)
}

// CachedResolver memoizes resolutions against an inner Resolver, using
// singleflight so that concurrent misses for the same (directory, name) key
// collapse into a single call to inner.Resolve rather than a cache
// stampede. InvalidateDirectory drops every cached entry for a directory, so
// a CacheInvalidator watching the filesystem can keep it fresh (spec §9:
// "handler sets can optionally be cached by (dir, name)... invalidate on
// file-mtime change"). Our in-memory Registry makes a single Resolve cheap
// on its own; this exists to exercise the pattern a real module loader
// (where resolution means parsing and importing a file) would need.
type CachedResolver struct {
	inner Resolver
	group singleflight.Group

	mu        sync.RWMutex
	cache     map[string]*HandlerSet
	keysByDir map[string][]string
}

// NewCachedResolver wraps inner with a memoized, singleflight-coalesced
// cache.
func NewCachedResolver(inner Resolver) *CachedResolver {
	return &CachedResolver{
		inner:     inner,
		cache:     map[string]*HandlerSet{},
		keysByDir: map[string][]string{},
	}
}

// Resolve returns the cached handler set for (directory, name) if present;
// otherwise it resolves via inner, caching the result, with concurrent
// misses for the same key coalesced into one inner.Resolve call.
func (c *CachedResolver) Resolve(directory, name string) (*HandlerSet, error) {
	key := directory + "\x00" + name

	c.mu.RLock()
	if hs, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return hs, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		hs, err := c.inner.Resolve(directory, name)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[key] = hs
		c.keysByDir[directory] = appendUniqueKey(c.keysByDir[directory], key)
		c.mu.Unlock()
		return hs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*HandlerSet), nil
}

// InvalidateDirectory drops every cached entry for directory, so the next
// Resolve call against it re-runs against the underlying Resolver.
func (c *CachedResolver) InvalidateDirectory(directory string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.keysByDir[directory] {
		delete(c.cache, k)
	}
	delete(c.keysByDir, directory)
}

func appendUniqueKey(keys []string, key string) []string {
	for _, k := range keys {
		if k == key {
			return keys
		}
	}
	return append(keys, key)
}
