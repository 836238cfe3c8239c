package meteomatics

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/couchcryptid/florascope-service/internal/domain"
	"github.com/couchcryptid/florascope-service/internal/observability"
)

// CachedSource wraps a ClimateSource with an in-memory LRU cache keyed by query.
type CachedSource struct {
	inner   domain.ClimateSource
	cache   *lruCache[[]domain.ClimateSample]
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a climate source.
func NewCachedSource(inner domain.ClimateSource, maxEntries int, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   newLRUCache[[]domain.ClimateSample](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedSource) FetchClimatology(ctx context.Context, q domain.ClimateQuery) ([]domain.ClimateSample, error) {
	key := queryKey(q)
	if samples, ok := c.cache.get(key); ok {
		c.metrics.ClimateCache.WithLabelValues("hit").Inc()
		return samples, nil
	}
	c.metrics.ClimateCache.WithLabelValues("miss").Inc()

	samples, err := c.inner.FetchClimatology(ctx, q)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty climatologies so a provider outage can be retried.
	if len(samples) > 0 {
		c.cache.put(key, samples)
	}
	return samples, nil
}

func queryKey(q domain.ClimateQuery) string {
	vars := make([]string, len(q.Variables))
	for i, v := range q.Variables {
		vars[i] = string(v)
	}
	return fmt.Sprintf("%.6f,%.6f|%s|%s|%s|%s",
		q.Lat, q.Lon,
		q.Start.UTC().Format(timeLayout), q.End.UTC().Format(timeLayout),
		q.Interval, strings.Join(vars, ","))
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
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

func (c *lruCache[V]) remove(e *entry[V]) {
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

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
