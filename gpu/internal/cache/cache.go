// SPDX-License-Identifier: Unlicense OR MIT

// Package cache implements keyed pools of recyclable driver objects.
package cache

import (
	"fmt"
	"log/slog"
)

// Tier is the sharing class of the objects in a Cache.
type Tier uint8

const (
	// Shared objects are usable by every context of a share group.
	Shared Tier = iota
	// NonShared objects are local to the context that created them.
	NonShared
)

func (t Tier) String() string {
	switch t {
	case Shared:
		return "shared"
	case NonShared:
		return "non-shared"
	default:
		panic("unknown tier")
	}
}

// Cache pools objects of type V by their creation parameters K.
type Cache[K comparable, V comparable] struct {
	name      string
	params    func(V) K
	retention int
	log       *slog.Logger

	entries map[V]*entry[K]
	free    map[K][]V
}

type entry[K comparable] struct {
	key   K
	inUse bool
	// idle counts the frames the object spent recycled.
	idle int
}

// Options configure a Cache.
type Options struct {
	// Retention is the number of frames a recycled object survives
	// without being acquired.
	Retention int
	Logger    *slog.Logger
}

// ConsistencyError is returned when a recycled object no longer matches
// the parameters it was cached under.
type ConsistencyError struct {
	Cache string
	Key   any
	Got   any
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("cache: %s: recycled object has parameters %+v, requested %+v", e.Cache, e.Got, e.Key)
}

// New returns a cache that uses params to query the current parameters
// of its objects.
func New[K comparable, V comparable](name string, tier Tier, params func(V) K, opts Options) *Cache[K, V] {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Cache[K, V]{
		name:      name,
		params:    params,
		retention: opts.Retention,
		log:       log.With("cache", name, "tier", tier.String()),
		entries:   make(map[V]*entry[K]),
		free:      make(map[K][]V),
	}
}

// Acquire returns a recycled object cached under key, or one made by
// create. A recycled object whose parameters differ from key results in a
// *ConsistencyError; the object stays in the cache.
func (c *Cache[K, V]) Acquire(key K, create func(K) (V, error)) (V, error) {
	if bucket := c.free[key]; len(bucket) > 0 {
		v := bucket[len(bucket)-1]
		if got := c.params(v); got != key {
			var zero V
			return zero, &ConsistencyError{Cache: c.name, Key: key, Got: got}
		}
		var zero V
		bucket[len(bucket)-1] = zero
		if len(bucket) == 1 {
			delete(c.free, key)
		} else {
			c.free[key] = bucket[:len(bucket)-1]
		}
		e := c.entries[v]
		e.inUse = true
		e.idle = 0
		return v, nil
	}
	v, err := create(key)
	if err != nil {
		var zero V
		return zero, err
	}
	if _, exists := c.entries[v]; exists {
		panic(fmt.Errorf("cache: %s: object exists, %v", c.name, v))
	}
	c.entries[v] = &entry[K]{key: key, inUse: true}
	c.log.Debug("object created", "key", key, "objects", len(c.entries))
	return v, nil
}

// Recycle makes v available to Acquire.
func (c *Cache[K, V]) Recycle(v V) {
	e, ok := c.entries[v]
	if !ok {
		panic(fmt.Errorf("cache: %s: recycling unknown object %v", c.name, v))
	}
	if !e.inUse {
		panic(fmt.Errorf("cache: %s: object recycled twice %v", c.name, v))
	}
	e.inUse = false
	e.idle = 0
	c.free[e.key] = append(c.free[e.key], v)
}

// Frame ages the recycled objects and destroys the ones left idle for more
// than the retention period.
func (c *Cache[K, V]) Frame(destroy func(V)) {
	for key, bucket := range c.free {
		kept := bucket[:0]
		for _, v := range bucket {
			e := c.entries[v]
			e.idle++
			if e.idle > c.retention {
				delete(c.entries, v)
				destroy(v)
				continue
			}
			kept = append(kept, v)
		}
		for i := len(kept); i < len(bucket); i++ {
			var zero V
			bucket[i] = zero
		}
		if len(kept) == 0 {
			delete(c.free, key)
		} else {
			c.free[key] = kept
		}
	}
}

// Evict destroys the recycled objects matching pred.
func (c *Cache[K, V]) Evict(pred func(V) bool, destroy func(V)) {
	for key, bucket := range c.free {
		kept := bucket[:0]
		for _, v := range bucket {
			if pred(v) {
				delete(c.entries, v)
				destroy(v)
				continue
			}
			kept = append(kept, v)
		}
		for i := len(kept); i < len(bucket); i++ {
			var zero V
			bucket[i] = zero
		}
		if len(kept) == 0 {
			delete(c.free, key)
		} else {
			c.free[key] = kept
		}
	}
}

// Release destroys every object, in use or not.
func (c *Cache[K, V]) Release(destroy func(V)) {
	if n := len(c.entries); n > 0 {
		c.log.Debug("releasing objects", "objects", n)
	}
	for v := range c.entries {
		destroy(v)
	}
	c.entries = make(map[V]*entry[K])
	c.free = make(map[K][]V)
}

// Len returns the number of objects owned by the cache.
func (c *Cache[K, V]) Len() int {
	return len(c.entries)
}

// Idle returns the number of recycled objects.
func (c *Cache[K, V]) Idle() int {
	n := 0
	for _, b := range c.free {
		n += len(b)
	}
	return n
}
