package soilcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
)

// CachedProvider wraps a SoilProvider with an in-memory LRU cache. Soil
// composition at fixed coordinates changes on geological timescales, so
// repeat lookups for the same plot can be served locally.
type CachedProvider struct {
	inner   domain.SoilProvider
	cache   *lruCache
	metrics *observability.Metrics
}

// New creates a cache decorator around a soil provider.
func New(inner domain.SoilProvider, maxEntries int, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedProvider) Lookup(ctx context.Context, lat, lon float64) (*domain.SoilReading, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	if reading, ok := c.cache.get(key); ok {
		c.metrics.SoilCache.WithLabelValues("hit").Inc()
		return &reading, nil
	}
	c.metrics.SoilCache.WithLabelValues("miss").Inc()

	reading, err := c.inner.Lookup(ctx, lat, lon)
	if err != nil {
		return reading, err
	}
	// Only cache found readings so transient "no data" responses can be
	// retried.
	if reading != nil {
		c.cache.put(key, *reading)
	}
	return reading, nil
}

// lruCache is a simple thread-safe LRU cache for soil readings.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.SoilReading
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.SoilReading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.SoilReading{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.SoilReading) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
