package openmeteo

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/plume-triage/internal/domain"
)

// CachedWeather wraps a WeatherSource with an in-memory LRU cache. Entries
// expire after ttl, and locations are bucketed to two decimal places (~1 km),
// which is finer than the forecast grid.
type CachedWeather struct {
	inner domain.WeatherSource
	cache *lruCache
	ttl   time.Duration
	clock clockwork.Clock
}

// NewCachedWeather creates a cache decorator around a weather source.
func NewCachedWeather(inner domain.WeatherSource, maxEntries int, ttl time.Duration) *CachedWeather {
	return newCachedWeather(inner, maxEntries, ttl, clockwork.NewRealClock())
}

func newCachedWeather(inner domain.WeatherSource, maxEntries int, ttl time.Duration, clock clockwork.Clock) *CachedWeather {
	return &CachedWeather{
		inner: inner,
		cache: newLRUCache(maxEntries),
		ttl:   ttl,
		clock: clock,
	}
}

func (c *CachedWeather) Current(ctx context.Context, loc domain.LatLon) (domain.WeatherConditions, error) {
	key := fmt.Sprintf("%.2f,%.2f", loc.Lat, loc.Lon)
	now := c.clock.Now()
	if e, ok := c.cache.get(key); ok && now.Before(e.expires) {
		return e.value, nil
	}

	w, err := c.inner.Current(ctx, loc)
	if err != nil {
		return w, err
	}
	c.cache.put(key, cached{value: w, expires: now.Add(c.ttl)})
	return w, nil
}

type cached struct {
	value   domain.WeatherConditions
	expires time.Time
}

// lruCache is a thread-safe LRU of weather lookups. The front of order is
// the most recently used key.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	entries    map[string]*list.Element
}

type entry struct {
	key   string
	value cached
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: max(maxEntries, 1),
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (cached, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return cached{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lruCache) put(key string, value cached) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
