package provider

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
	"golang.org/x/sync/singleflight"
)

// variantCache maps canonical keys to built materials and remembers the order in which they were
// first inserted. Concurrent misses on one key share a single in-flight build.
type variantCache struct {
	mu     sync.RWMutex
	table  map[variant.Key]material.Material
	order  []material.Material
	flight singleflight.Group
}

func newVariantCache() *variantCache {
	return &variantCache{table: make(map[variant.Key]material.Material)}
}

func (c *variantCache) lookup(k variant.Key) (material.Material, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.table[k]
	return m, ok
}

// getOrBuild returns the material cached for k, building and inserting it on a miss.
// A failed build leaves the cache untouched and is reported to every caller waiting on it.
//
// Parameters:
//   - k: the canonical key
//   - build: creates the material of k
//
// Returns:
//   - material.Material: the cached material
//   - bool: true if this call ran build
//   - error: the build error
func (c *variantCache) getOrBuild(k variant.Key, build func() (material.Material, error)) (material.Material, bool, error) {
	if m, ok := c.lookup(k); ok {
		return m, false, nil
	}

	built := false
	v, err, _ := c.flight.Do(k.ID(), func() (any, error) {
		// a build of k may have finished between the lookup and Do
		if m, ok := c.lookup(k); ok {
			return m, nil
		}
		built = true
		m, err := build()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.table[k] = m
		c.order = append(c.order, m)
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, built, err
	}
	return v.(material.Material), built, nil
}

func (c *variantCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// list returns the cached materials in insertion order.
func (c *variantCache) list() []material.Material {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]material.Material, len(c.order))
	copy(out, c.order)
	return out
}

// destroyAll empties the cache, passing every material to destroy in insertion order.
func (c *variantCache) destroyAll(destroy func(material.Material)) int {
	c.mu.Lock()
	order := c.order
	c.table = make(map[variant.Key]material.Material)
	c.order = nil
	c.mu.Unlock()

	for _, m := range order {
		destroy(m)
	}
	return len(order)
}
