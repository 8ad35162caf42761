package scan

import (
	"container/list"
	"sync"
	"time"

	"memprobe/probe"
)

// DefaultCacheCapacity is the number of scan results kept before the least
// recently used entry is evicted.
const DefaultCacheCapacity = 128

// cacheKey identifies one scan result. The epoch component makes entries from
// a previous process layout unreachable without any invalidation sweep.
type cacheKey struct {
	pid     probe.ProcessID
	epoch   uint64
	pattern string
	scope   string
}

// cacheEntry holds the resolved matches of one scan.
type cacheEntry struct {
	matches    []Match
	capturedAt time.Time
}

// resultCache is a bounded least-recently-used map from cacheKey to
// cacheEntry. It is a pure key-value store; staleness detection is the
// engine's responsibility via epoch bookkeeping.
type resultCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // Front is most recently used; values are *cacheItem
	items    map[cacheKey]*list.Element
}

type cacheItem struct {
	key   cacheKey
	entry cacheEntry
}

func newResultCache(capacity int) *resultCache {
	if capacity < 1 {
		capacity = 1
	}
	return &resultCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[cacheKey]*list.Element),
	}
}

func (c *resultCache) get(key cacheKey) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return cacheEntry{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheItem).entry, true
}

func (c *resultCache) put(key cacheKey, entry cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheItem).entry = entry
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheItem).key)
		}
	}

	c.items[key] = c.order.PushFront(&cacheItem{key: key, entry: entry})
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
