package resolver

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// lruCache bounds memoized resolutions. A nil cache never hits.
type lruCache[K comparable, V any] struct {
	entries *lru.Cache[K, V]
}

// newLRUCache returns nil for a non-positive capacity.
func newLRUCache[K comparable, V any](capacity int) *lruCache[K, V] {
	if capacity <= 0 {
		return nil
	}
	entries, err := lru.New[K, V](capacity)
	if err != nil {
		return nil
	}
	return &lruCache[K, V]{entries: entries}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}
	return c.entries.Get(key)
}

func (c *lruCache[K, V]) put(key K, value V) {
	if c == nil {
		return
	}
	c.entries.Add(key, value)
}

func (c *lruCache[K, V]) len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

func (c *lruCache[K, V]) clear() {
	if c == nil {
		return
	}
	c.entries.Purge()
}
