package thumbnail

import (
	"container/list"
	"fmt"
	"sync"
)

// Cache stores rendered data URLs by key
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// CacheKey identifies a render of url at the given output size
func CacheKey(url string, width, height int) string {
	return fmt.Sprintf("%s|%d|%d", url, width, height)
}

// MemoryCache is a size-bounded LRU cache safe for concurrent use
type MemoryCache struct {
	capacity int

	mu    sync.Mutex
	order *list.List
	items map[string]*list.Element
}

type cacheEntry struct {
	key   string
	value string
}

// NewMemoryCache creates an LRU cache holding at most capacity entries.
// A capacity below one is treated as one.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

func (c *MemoryCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).value = value
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, value: value})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

// Len returns the number of cached entries
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
