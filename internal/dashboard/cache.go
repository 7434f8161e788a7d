package dashboard

// Cache stores described Detail entries keyed by source path.
// It is not safe for concurrent use; callers must confine access to a single
// goroutine (e.g., the Bubble Tea update loop).
type Cache struct {
	entries map[string]*Detail
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Detail)}
}

// Get returns the cached detail for the given path, or nil and false on miss.
func (c *Cache) Get(path string) (*Detail, bool) {
	d, ok := c.entries[path]
	return d, ok
}

// Set stores a detail entry in the cache, replacing any existing entry.
func (c *Cache) Set(path string, detail *Detail) {
	c.entries[path] = detail
}

// Invalidate clears all cached entries.
func (c *Cache) Invalidate() {
	c.entries = make(map[string]*Detail)
}
