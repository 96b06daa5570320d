package routing

import (
	"sync"

	"pathserver/graph"

	log "github.com/sirupsen/logrus"
)

// DefaultCacheCapacity is the number of query results kept by a PathCache
const DefaultCacheCapacity = 10

// FinderFunc computes a path for a cache miss
type FinderFunc func(g *graph.Graph, source, dest graph.NodeID) Path

// CacheKey is the ordered (source, dest) pair a result is stored under.
// (a, b) and (b, a) are distinct keys.
type CacheKey struct {
	Source graph.NodeID
	Dest   graph.NodeID
}

type cacheEntry struct {
	key  CacheKey
	path Path
}

// CacheStats is a point-in-time view of cache activity
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	Capacity  int
}

// PathCache memoizes shortest-path results in a bounded FIFO. The lookup,
// compute and insert sequence runs under one lock, so concurrent callers
// never see more than capacity entries, duplicate keys or lost inserts.
type PathCache struct {
	mu       sync.Mutex
	entries  []cacheEntry // oldest first
	capacity int
	finder   FinderFunc

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewPathCache creates a cache backed by ShortestPath. A non-positive
// capacity falls back to DefaultCacheCapacity.
func NewPathCache(capacity int) *PathCache {
	return NewPathCacheWithFinder(capacity, ShortestPath)
}

func NewPathCacheWithFinder(capacity int, finder FinderFunc) *PathCache {
	if capacity <= 0 {
		log.Warnf("invalid path cache capacity %d, using %d", capacity, DefaultCacheCapacity)
		capacity = DefaultCacheCapacity
	}
	if finder == nil {
		finder = ShortestPath
	}
	return &PathCache{
		entries:  make([]cacheEntry, 0, capacity),
		capacity: capacity,
		finder:   finder,
	}
}

// Resolve returns the path for (source, dest), computing and caching it on
// a miss. The bool reports whether the answer was served from the cache.
// Empty results are cached like any other.
func (c *PathCache) Resolve(g *graph.Graph, source, dest graph.NodeID) (Path, bool) {
	key := CacheKey{Source: source, Dest: dest}

	c.mu.Lock()
	defer c.mu.Unlock()

	if path, ok := c.find(key); ok {
		c.hits++
		return path.Copy(), true
	}

	c.misses++
	path := c.finder(g, source, dest)
	if len(c.entries) >= c.capacity {
		evicted := c.entries[0]
		copy(c.entries, c.entries[1:])
		c.entries = c.entries[:len(c.entries)-1]
		c.evictions++
		log.Debugf("path cache evicted (%d,%d)", evicted.key.Source, evicted.key.Dest)
	}
	c.entries = append(c.entries, cacheEntry{key: key, path: path})

	return path.Copy(), false
}

// Lookup returns a cached result without computing on a miss
func (c *PathCache) Lookup(source, dest graph.NodeID) (Path, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path, ok := c.find(CacheKey{Source: source, Dest: dest})
	return path.Copy(), ok
}

// find scans oldest to newest; callers hold mu
func (c *PathCache) find(key CacheKey) (Path, bool) {
	for _, entry := range c.entries {
		if entry.key == key {
			return entry.path, true
		}
	}
	return nil, false
}

func (c *PathCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *PathCache) Capacity() int {
	return c.capacity
}

// Keys returns the cached keys, oldest first
func (c *PathCache) Keys() []CacheKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]CacheKey, len(c.entries))
	for i, entry := range c.entries {
		keys[i] = entry.key
	}
	return keys
}

func (c *PathCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
		Capacity:  c.capacity,
	}
}
