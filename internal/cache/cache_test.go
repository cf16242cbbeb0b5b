package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reynard/nlweb/pkg/protocol"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func response(query string) protocol.SuggestionResponse {
	resp := protocol.EmptyResponse(query)
	resp.Suggestions = append(resp.Suggestions, protocol.Suggestion{
		Tool:       protocol.NewTool("t", "d", "c").Tags("x").Build(),
		Score:      42,
		Parameters: map[string]any{"path": "/tmp"},
	})
	resp.TotalToolsConsidered = 1
	return resp
}

func TestGetPut(t *testing.T) {
	c := New(time.Minute, 10)

	_, _, ok := c.Get("missing")
	assert.False(t, ok)

	c.Put("k", response("q"))
	got, age, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "q", got.Query)
	assert.GreaterOrEqual(t, age, time.Duration(0))
	assert.Equal(t, 1, c.Len())
}

func TestTTLExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New(10*time.Second, 10, WithClock(clock.Now))

	c.Put("a", response("a"))
	c.Put("b", response("b"))
	require.Equal(t, 2, c.Len())

	clock.Advance(9 * time.Second)
	_, age, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 9*time.Second, age)

	clock.Advance(time.Second)
	_, _, ok = c.Get("a")
	assert.False(t, ok, "entry at exactly the TTL is expired")
	assert.Equal(t, 1, c.Len(), "expired entry removed on lookup")

	assert.Equal(t, 1, c.PruneExpired())
	assert.Zero(t, c.Len())

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Expirations)
}

func TestBound_EvictsOldestInserted(t *testing.T) {
	const maxSize = 3
	c := New(time.Minute, maxSize)

	for i := 0; i <= maxSize; i++ {
		c.Put(fmt.Sprintf("k%d", i), response("q"))
	}

	assert.Equal(t, maxSize, c.Len())
	_, _, ok := c.Get("k0")
	assert.False(t, ok, "first key evicted")
	for i := 1; i <= maxSize; i++ {
		_, _, ok := c.Get(fmt.Sprintf("k%d", i))
		assert.True(t, ok)
	}
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestBound_ReadsDoNotRefreshPosition(t *testing.T) {
	c := New(time.Minute, 2)

	c.Put("a", response("a"))
	c.Put("b", response("b"))
	_, _, _ = c.Get("a")
	c.Put("c", response("c"))

	_, _, ok := c.Get("a")
	assert.False(t, ok, "FIFO, not LRU")
	_, _, ok = c.Get("b")
	assert.True(t, ok)
}

func TestPut_ReplaceMovesToNewest(t *testing.T) {
	c := New(time.Minute, 2)

	c.Put("a", response("a1"))
	c.Put("b", response("b"))
	c.Put("a", response("a2"))
	assert.Equal(t, 2, c.Len())

	c.Put("c", response("c"))
	_, _, ok := c.Get("b")
	assert.False(t, ok)

	got, _, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a2", got.Query)
}

func TestCopiesAreIsolated(t *testing.T) {
	c := New(time.Minute, 10)

	original := response("q")
	c.Put("k", original)
	original.Suggestions[0].Parameters["path"] = "/mutated"
	original.Suggestions[0].Tool.Tags[0] = "mutated"

	first, _, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "/tmp", first.Suggestions[0].Parameters["path"])
	assert.Equal(t, "x", first.Suggestions[0].Tool.Tags[0])

	first.Suggestions[0].Score = 0
	first.CacheHit = true

	second, _, _ := c.Get("k")
	assert.Equal(t, 42.0, second.Suggestions[0].Score)
	assert.False(t, second.CacheHit)
}

func TestClear(t *testing.T) {
	c := New(time.Minute, 10)
	c.Put("a", response("a"))
	c.Put("b", response("b"))

	c.Clear()
	assert.Zero(t, c.Len())
	_, _, ok := c.Get("a")
	assert.False(t, ok)
}

func TestConfigure(t *testing.T) {
	clock := newFakeClock()
	c := New(time.Minute, 5, WithClock(clock.Now))
	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("k%d", i), response("q"))
	}

	c.Configure(5*time.Second, 2)
	assert.Equal(t, 2, c.Len(), "shrinking evicts immediately")
	_, _, ok := c.Get("k4")
	assert.True(t, ok)

	clock.Advance(5 * time.Second)
	_, _, ok = c.Get("k4")
	assert.False(t, ok, "new TTL applies to existing entries")

	c.Configure(0, 0)
	stats := c.Stats()
	assert.Equal(t, 2, stats.MaxSize, "non-positive values keep settings")
	assert.Equal(t, 5.0, stats.TTLSeconds)
}

func TestNew_Defaults(t *testing.T) {
	c := New(0, 0)
	stats := c.Stats()
	assert.Equal(t, DefaultMaxSize, stats.MaxSize)
	assert.Equal(t, DefaultTTL.Seconds(), stats.TTLSeconds)
}

func TestStats_HitRate(t *testing.T) {
	c := New(time.Minute, 10)
	c.Put("a", response("a"))

	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("b")

	stats := c.Stats()
	assert.Equal(t, int64(3), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 75.0, stats.HitRate, 1e-9)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute, 50)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (w*200+i)%120)
				c.Put(key, response(key))
				c.Get(key)
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
