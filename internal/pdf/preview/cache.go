package preview

import (
	"fmt"
	"image"
	"sync"
)

// DefaultCacheCapacity is the number of rendered pages kept when no capacity
// is given
const DefaultCacheCapacity = 32

// pageKey identifies one rendering of one page
type pageKey struct {
	location string
	page     int
	scale    float64
}

func (k pageKey) String() string {
	return fmt.Sprintf("%s#%d@%.1f", k.location, k.page, k.scale)
}

// PageCache is a thread-safe least recently used cache of rendered pages
type PageCache struct {
	mutex    sync.Mutex
	capacity int
	items    map[pageKey]*cacheNode
	head     *cacheNode // most recently used
	tail     *cacheNode // least recently used
	hits     int64
	misses   int64
}

type cacheNode struct {
	key  pageKey
	img  image.Image
	prev *cacheNode
	next *cacheNode
}

// NewPageCache creates a cache holding up to capacity pages
func NewPageCache(capacity int) *PageCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}

	c := &PageCache{
		capacity: capacity,
		items:    make(map[pageKey]*cacheNode),
		head:     &cacheNode{},
		tail:     &cacheNode{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the cached rendering and marks it as recently used
func (c *PageCache) Get(location string, page int, scale float64) (image.Image, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	node, ok := c.items[pageKey{location, page, scale}]
	if !ok {
		c.misses++
		return nil, false
	}
	c.moveToFront(node)
	c.hits++
	return node.img, true
}

// Put stores a rendering, evicting the least recently used one when full
func (c *PageCache) Put(location string, page int, scale float64, img image.Image) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	key := pageKey{location, page, scale}
	if node, ok := c.items[key]; ok {
		node.img = img
		c.moveToFront(node)
		return
	}

	node := &cacheNode{key: key, img: img}
	c.addToFront(node)
	c.items[key] = node

	if len(c.items) > c.capacity {
		lru := c.tail.prev
		c.removeNode(lru)
		delete(c.items, lru.key)
	}
}

// Forget drops every rendering of location
func (c *PageCache) Forget(location string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n := 0
	for key, node := range c.items {
		if key.location == location {
			c.removeNode(node)
			delete(c.items, key)
			n++
		}
	}
	return n
}

// Len returns the number of cached pages
func (c *PageCache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.items)
}

// Keys lists the cached entries from most to least recently used
func (c *PageCache) Keys() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	keys := make([]string, 0, len(c.items))
	for n := c.head.next; n != c.tail; n = n.next {
		keys = append(keys, n.key.String())
	}
	return keys
}

// Stats returns cache statistics
func (c *PageCache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	total := c.hits + c.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}
	return CacheStats{
		Hits:     c.hits,
		Misses:   c.misses,
		HitRate:  hitRate,
		Size:     len(c.items),
		Capacity: c.capacity,
	}
}

func (c *PageCache) moveToFront(node *cacheNode) {
	c.removeNode(node)
	c.addToFront(node)
}

func (c *PageCache) addToFront(node *cacheNode) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *PageCache) removeNode(node *cacheNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

// CacheStats provides statistics about cache performance
type CacheStats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hitRatePercent"`
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
}
