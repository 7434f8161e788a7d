package preview

import (
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// CacheSize bounds the number of cached lookups.
const CacheSize = 50

// entry is a cached lookup: either an image path or a checked-absent marker.
type entry struct {
	image  string
	absent bool
}

func found(image string) entry { return entry{image: image} }

var missing = entry{absent: true}

func (e entry) check(key string) {
	if (e.image == "") != e.absent {
		panic(fmt.Sprintf("preview: inconsistent cache entry for %q: image=%q absent=%v", key, e.image, e.absent))
	}
}

// cache is a bounded first-in-first-out map. Reads use Peek so a hit never
// refreshes an entry's position; the oldest insertion is evicted first.
//
// Every purge starts a new generation. Writes computed under an older
// generation are dropped, so a lookup that raced an invalidation cannot
// resurrect stale state.
type cache struct {
	mu         sync.Mutex
	entries    *simplelru.LRU[string, entry]
	generation uint64
	metrics    *Metrics
}

func newCache(size int, m *Metrics) *cache {
	entries, err := simplelru.NewLRU[string, entry](size, nil)
	if err != nil {
		panic(fmt.Sprintf("preview: cache size %d: %v", size, err))
	}
	return &cache{entries: entries, metrics: m}
}

func (c *cache) get(kind, key string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Peek(key)
	c.metrics.lookup(kind, ok)
	if ok {
		e.check(key)
	}
	return e, ok
}

// gen returns the current generation, to be passed back to put.
func (c *cache) gen() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// put stores e under key unless the cache was purged since gen or the key is
// already present. It reports whether e was stored.
func (c *cache) put(gen uint64, key string, e entry) bool {
	e.check(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.entries.Contains(key) {
		return false
	}
	if c.entries.Add(key, e) {
		c.metrics.evicted()
	}
	return true
}

func (c *cache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.generation++
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func (c *cache) contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Contains(key)
}
