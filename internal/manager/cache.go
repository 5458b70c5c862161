package manager

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"modelyaml/internal/registry"
	"modelyaml/pkg/types"
)

// cache is a bounded LRU of memoized resolutions. simplelru is wrapped with a
// mutex of our own so evictions can be told apart from explicit removals.
type cache struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, entry]
	capacity int
	dropping bool
	onEvict  func(key string, e entry)
}

func newCache(size int, onEvict func(key string, e entry)) *cache {
	c := &cache{capacity: size, onEvict: onEvict}
	// NewLRU only fails for size <= 0, which callers never pass.
	c.lru, _ = simplelru.NewLRU[string, entry](size, func(k string, e entry) {
		if !c.dropping && c.onEvict != nil {
			c.onEvict(k, e)
		}
	})
	return c
}

func (c *cache) get(key string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

func (c *cache) put(key string, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, e)
}

func (c *cache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropping = true
	c.lru.Remove(key)
	c.dropping = false
}

// invalidate removes every entry whose ancestry path contains one of ids and
// returns how many were removed.
func (c *cache) invalidate(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropping = true
	defer func() { c.dropping = false }()
	n := 0
	for _, k := range c.lru.Keys() {
		e, ok := c.lru.Peek(k)
		if !ok {
			continue
		}
		for _, d := range e.defs {
			if _, hit := set[d.Model]; hit {
				c.lru.Remove(k)
				n++
				break
			}
		}
	}
	return n
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// valid reports whether every definition e was computed from is still current in snap.
func (e entry) valid(snap *registry.Snapshot) bool {
	for _, d := range e.defs {
		cur, ok := snap.Get(d.Model)
		if !ok || cur != d {
			return false
		}
	}
	return true
}

// matches reports whether e was computed for the request canon.
func (e entry) matches(canon []byte) bool { return bytes.Equal(e.request, canon) }

// memoKey identifies a resolution request. Capabilities and overrides are
// hashed from their canonical JSON form (encoding/json sorts map keys); the
// canonical bytes are returned too so a hit can be checked exactly.
func memoKey(model string, caps types.Capabilities, overrides map[string]any) (string, []byte, error) {
	b, err := json.Marshal(struct {
		Caps      types.Capabilities `json:"c"`
		Overrides map[string]any     `json:"o"`
	}{caps, overrides})
	if err != nil {
		return "", nil, fmt.Errorf("memo key: %w", err)
	}
	return fmt.Sprintf("%s#%016x", model, xxhash.Sum64(b)), b, nil
}

func (m *Manager) onEvict(key string, _ entry) {
	m.evictions.Add(1)
	cacheEvictionsTotal.Inc()
	m.log.Debug().Str("key", key).Msg("memo entry evicted")
	m.publish(EventCacheEvict, "", map[string]any{"key": key})
}

func (m *Manager) invalidate(ids []string) {
	n := m.cache.invalidate(ids)
	if n == 0 {
		return
	}
	m.invalidations.Add(uint64(n))
	cacheInvalidationsTotal.Add(float64(n))
	m.log.Debug().Strs("models", ids).Int("entries", n).Msg("memo entries invalidated")
	m.publish(EventInvalidate, "", map[string]any{"models": ids, "entries": n})
}
