package cachectl

import (
	"context"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const defaultMemoryCleanupInterval = 5 * time.Minute

// memoryConn administers an in-process go-cache instance. It backs the
// connfake test double and embedded use.
type memoryConn struct {
	cache *gocache.Cache
}

// NewMemoryConn wraps cache, creating an empty one when nil.
func NewMemoryConn(cache *gocache.Cache) Conn {
	if cache == nil {
		cache = gocache.New(gocache.NoExpiration, defaultMemoryCleanupInterval)
	}
	return &memoryConn{cache: cache}
}

func (c *memoryConn) Driver() Driver { return DriverMemory }

func (c *memoryConn) Ready(context.Context) error { return nil }

func (c *memoryConn) Flush(context.Context) error {
	c.cache.Flush()
	return nil
}

// Keys returns matches in sorted order; go-cache iterates a map.
func (c *memoryConn) Keys(_ context.Context, pattern string) ([]string, error) {
	matcher, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	var keys []string
	for key := range c.cache.Items() {
		if matcher.Match(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *memoryConn) Exists(_ context.Context, key string) (bool, error) {
	_, ok := c.cache.Get(key)
	return ok, nil
}

func (c *memoryConn) DeleteMany(_ context.Context, keys ...string) (int64, error) {
	var removed int64
	for _, key := range keys {
		if _, ok := c.cache.Get(key); ok {
			removed++
		}
		c.cache.Delete(key)
	}
	return removed, nil
}

func (c *memoryConn) Close() error { return nil }
