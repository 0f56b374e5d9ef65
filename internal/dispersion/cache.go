package dispersion

import (
	"math"
	"sync"

	"github.com/couchcryptid/plume-triage/internal/domain"
)

// DefaultCacheSize is the coefficient cache capacity when none is configured.
const DefaultCacheSize = 1000

// distanceQuantum is the key resolution: distances within 0.1 m share an entry.
const distanceQuantum = 0.1

type cacheKey struct {
	bucket int64
	class  domain.StabilityClass
}

func newCacheKey(x float64, class domain.StabilityClass) cacheKey {
	return cacheKey{bucket: int64(math.Round(x / distanceQuantum)), class: class}
}

// CoefficientCache memoises dispersion coefficients with first-in-first-out
// eviction once capacity is exceeded. It is safe for concurrent use.
type CoefficientCache struct {
	maxEntries int

	mu      sync.Mutex
	entries map[cacheKey]domain.DispersionCoefficients
	order   []cacheKey // insertion order, oldest first
	hits    uint64
	misses  uint64
}

// NewCoefficientCache creates a cache holding at most maxEntries values.
// Non-positive sizes fall back to DefaultCacheSize.
func NewCoefficientCache(maxEntries int) *CoefficientCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}
	return &CoefficientCache{
		maxEntries: maxEntries,
		entries:    make(map[cacheKey]domain.DispersionCoefficients, maxEntries),
		order:      make([]cacheKey, 0, maxEntries),
	}
}

func (c *CoefficientCache) get(key cacheKey) (domain.DispersionCoefficients, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

func (c *CoefficientCache) put(key cacheKey, value domain.DispersionCoefficients) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have filled the slot between get and put; the
	// value is identical, so keep the original insertion position.
	if _, ok := c.entries[key]; ok {
		return
	}

	c.entries[key] = value
	c.order = append(c.order, key)

	for len(c.entries) > c.maxEntries {
		c.evictOldest()
	}
}

func (c *CoefficientCache) evictOldest() {
	oldest := c.order[0]
	c.order[0] = cacheKey{}
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

// Clear drops every entry. Counters are preserved.
func (c *CoefficientCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[cacheKey]domain.DispersionCoefficients, c.maxEntries)
	c.order = make([]cacheKey, 0, c.maxEntries)
}

// Len returns the number of cached entries.
func (c *CoefficientCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cumulative hit and miss counts.
func (c *CoefficientCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
