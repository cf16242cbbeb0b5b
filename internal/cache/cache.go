// Package cache provides the bounded TTL cache for suggestion responses.
//
// Entries are evicted in insertion order (FIFO) once the cache is full, and
// are treated as absent once older than the TTL. Both limits can be changed at
// runtime and apply from the next call.
package cache

import (
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/reynard/nlweb/pkg/protocol"
)

// Defaults used when the constructor is given non-positive limits.
const (
	DefaultTTL     = 10 * time.Second
	DefaultMaxSize = 1000
)

type entry struct {
	response protocol.SuggestionResponse
	storedAt time.Time
}

// SuggestionCache is a FIFO + TTL cache of suggestion responses.
// The cache stores its own copy of each response and hands out copies.
type SuggestionCache struct {
	mu      sync.Mutex
	entries *orderedmap.OrderedMap[string, entry]
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	hits        int64
	misses      int64
	evictions   int64
	expirations int64
}

// Option configures a SuggestionCache.
type Option func(*SuggestionCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *SuggestionCache) {
		c.now = now
	}
}

// New creates a cache holding at most maxSize entries for ttl each.
func New(ttl time.Duration, maxSize int, opts ...Option) *SuggestionCache {
	c := &SuggestionCache{
		entries: orderedmap.New[string, entry](),
		now:     time.Now,
	}
	c.setLimits(ttl, maxSize)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached response and its age.
// An expired entry is removed and reported as a miss.
func (c *SuggestionCache) Get(key string) (protocol.SuggestionResponse, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		c.misses++
		return protocol.SuggestionResponse{}, 0, false
	}

	age := c.now().Sub(e.storedAt)
	if age >= c.ttl {
		c.entries.Delete(key)
		c.expirations++
		c.misses++
		return protocol.SuggestionResponse{}, 0, false
	}

	c.hits++
	return e.response.Clone(), age, true
}

// Put stores a copy of resp under key, evicting the oldest entries while the
// cache is at capacity. Replacing a key moves it to the newest position.
func (c *SuggestionCache) Put(key string, resp protocol.SuggestionResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Delete(key)
	c.evictLocked(c.maxSize - 1)

	c.entries.Set(key, entry{
		response: resp.Clone(),
		storedAt: c.now(),
	})
}

// Clear removes all entries. Counters are kept.
func (c *SuggestionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = orderedmap.New[string, entry]()
}

// Len returns the number of stored entries, expired ones included until
// they are next looked up or pruned.
func (c *SuggestionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.entries.Len()
}

// PruneExpired removes every expired entry and returns how many were removed.
func (c *SuggestionCache) PruneExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for pair := c.entries.Oldest(); pair != nil; {
		next := pair.Next()
		if now.Sub(pair.Value.storedAt) >= c.ttl {
			c.entries.Delete(pair.Key)
			removed++
		}
		pair = next
	}
	c.expirations += int64(removed)
	return removed
}

// Configure changes the TTL and capacity. Non-positive values keep the
// current setting. Shrinking evicts the oldest entries immediately.
func (c *SuggestionCache) Configure(ttl time.Duration, maxSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = c.ttl
	}
	if maxSize <= 0 {
		maxSize = c.maxSize
	}
	c.setLimits(ttl, maxSize)
	c.evictLocked(c.maxSize)
}

// Stats returns cache counters and limits.
func (c *SuggestionCache) Stats() protocol.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := protocol.CacheStats{
		Size:        c.entries.Len(),
		MaxSize:     c.maxSize,
		TTLSeconds:  c.ttl.Seconds(),
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
	if lookups := c.hits + c.misses; lookups > 0 {
		s.HitRate = float64(c.hits) / float64(lookups) * 100
	}
	return s
}

func (c *SuggestionCache) setLimits(ttl time.Duration, maxSize int) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c.ttl = ttl
	c.maxSize = maxSize
}

// evictLocked drops the oldest entries until at most limit remain.
// Caller must hold c.mu.
func (c *SuggestionCache) evictLocked(limit int) {
	for c.entries.Len() > limit {
		oldest := c.entries.Oldest()
		if oldest == nil {
			return
		}
		c.entries.Delete(oldest.Key)
		c.evictions++
	}
}
