// Package cache provides a process-lifetime memo with in-flight
// de-duplication, and a speech provider wrapper built on it.
package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Stats counts lookups since the cache was created.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// Cache memoizes successful computations by key. Concurrent requests for a key
// share one computation. Failed computations are not stored.
type Cache[V any] struct {
	group singleflight.Group

	mu     sync.RWMutex
	values map[string]V
	epoch  uint64 // bumped by Clear; computations started earlier are not stored

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{values: make(map[string]V)}
}

// Get returns the stored value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// GetOrCompute returns the stored value for key, or runs compute once for all
// concurrent callers of the same key and stores its result on success.
//
// compute receives the context of the caller that started it. Each caller
// stops waiting when its own ctx is done. If the shared computation was
// cancelled by its starter while this caller is still live, the caller starts
// a fresh computation.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	var zero V
	for {
		if v, ok := c.Get(key); ok {
			c.hits.Add(1)
			return v, nil
		}

		c.mu.RLock()
		epoch := c.epoch
		c.mu.RUnlock()

		var led bool
		ch := c.group.DoChan(key, func() (any, error) {
			led = true
			c.misses.Add(1)
			v, err := compute(ctx)
			if err != nil {
				return nil, err
			}
			c.mu.Lock()
			if c.epoch == epoch {
				c.values[key] = v
			}
			c.mu.Unlock()
			return v, nil
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				if !led && ctx.Err() == nil && errors.Is(res.Err, context.Canceled) {
					continue
				}
				return zero, res.Err
			}
			if !led {
				c.hits.Add(1)
			}
			return res.Val.(V), nil
		}
	}
}

// Forget drops key.
func (c *Cache[V]) Forget(key string) {
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
}

// Clear drops every stored value. Computations in flight complete for their
// waiters but are not stored.
func (c *Cache[V]) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.values)
	c.values = make(map[string]V)
	c.epoch++
	return n
}

// Len returns the number of stored values.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Stats returns lookup counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.Len()}
}
