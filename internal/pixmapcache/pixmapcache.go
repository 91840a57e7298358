// Package pixmapcache implements the bounded in-memory tile cache: a
// fingerprint-keyed map with FIFO eviction (insertion order, not recency of
// access) and byte-accounted size tracking, as specified by the original
// mapcache.cpp and carried into this Go port without becoming "LRU" in the
// strict sense the name might suggest.
package pixmapcache

import (
	"image"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"
)

// FixedOverheadBytes approximates the per-entry bookkeeping cost (map node
// plus Extra payload) the original accounts for with a flat constant rather
// than computing an exact size.
const FixedOverheadBytes = 100

// DefaultMaxBytes is the default cache limit (16 MiB), matching the
// original's default mapcache preference.
const DefaultMaxBytes = 16 * 1024 * 1024

// Entry is a cached, decoded tile plus its source path and accounted size.
type Entry struct {
	Image      image.Image
	SourcePath string
	SizeBytes  int64
	Extra      Extra
}

// Extra is small caller-supplied metadata stored alongside an Entry, the Go
// equivalent of the original's map_cache_extra_t.
type Extra struct {
	// PlanetTimestamp records Mapnik-rendered tiles' freshness horizon;
	// zero for tiles that don't carry one.
	PlanetTimestamp int64
}

// Cache is a thread-safe, bounded, fingerprint-keyed cache of decoded
// tiles. Eviction is FIFO over insertion order: Get never promotes an
// entry, matching the original's keys_list semantics exactly.
type Cache struct {
	mu       sync.Mutex
	lru      *lru.LRU[Fingerprint, *Entry]
	maxBytes int64
	curBytes int64
}

// New creates a Cache bounded at maxBytes. A huge, effectively-unbounded
// backing store size is used for the underlying ordered map since eviction
// here is driven by accounted byte size, not the item count the backing
// LRU would otherwise enforce.
func New(maxBytes int64) *Cache {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	backing, _ := lru.NewLRU[Fingerprint, *Entry](1<<31-1, nil)
	return &Cache{lru: backing, maxBytes: maxBytes}
}

// Add inserts or replaces the entry for fingerprint. On replace, the
// previous entry's size is subtracted before the new size is added.
// Eviction then runs, oldest-first, until the total is at or below the
// configured limit.
func (c *Cache) Add(fp Fingerprint, img image.Image, sourcePath string, sizeBytes int64, extra Extra) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Peek(fp); ok {
		c.curBytes -= old.SizeBytes
	}

	entry := &Entry{Image: img, SourcePath: sourcePath, SizeBytes: sizeBytes + FixedOverheadBytes, Extra: extra}
	c.lru.Add(fp, entry)
	c.curBytes += entry.SizeBytes

	for c.curBytes > c.maxBytes && c.lru.Len() > 0 {
		_, evicted, ok := c.lru.RemoveOldest()
		if !ok {
			break
		}
		c.curBytes -= evicted.SizeBytes
	}
}

// Get returns the cached entry for fingerprint without affecting eviction
// order.
func (c *Cache) Get(fp Fingerprint) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Peek(fp)
}

// Remove deletes a single entry if present.
func (c *Cache) Remove(fp Fingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(fp)
}

func (c *Cache) removeLocked(fp Fingerprint) {
	if old, ok := c.lru.Peek(fp); ok {
		c.curBytes -= old.SizeBytes
		c.lru.Remove(fp)
	}
}

// Flush removes every entry.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.curBytes = 0
}

// FlushMatching removes every entry whose key starts with prefix. Used to
// invalidate all alpha/shrink-factor variants of a tile that was just
// redownloaded.
func (c *Cache) FlushMatching(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(string(key), prefix) {
			c.removeLocked(key)
		}
	}
}

// FlushByType removes every entry for one map_type_id.
func (c *Cache) FlushByType(mapTypeID int) {
	c.FlushMatching(TypePrefix(mapTypeID))
}

// Size returns the current accounted byte total.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curBytes
}

// Count returns the number of cached entries.
func (c *Cache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
