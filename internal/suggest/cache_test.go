package suggest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheHitWithinTTL(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Hour, 10)
	meta := Metadata{Title: "Example", Favicon: "https://example.com/favicon.ico"}
	c.Put("example.com", meta)

	got, ok := c.Get("example.com")
	require.True(t, ok)
	assert.Equal(t, meta, got)
}

func TestCacheExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := NewCache(time.Hour, 10)
	c.now = func() time.Time { return now }
	c.Put("example.com", Metadata{Title: "Example"})

	now = now.Add(59 * time.Minute)
	_, ok := c.Get("example.com")
	require.True(t, ok, "entry should survive inside the TTL")

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("example.com")
	require.False(t, ok, "entry must never be returned past expiry")
	assert.Equal(t, 0, c.Len())
}

func TestCacheEvictsOldestInserted(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Hour, 2)
	c.Put("a.com", Metadata{Title: "A"})
	c.Put("b.com", Metadata{Title: "B"})

	// Touch the oldest; FIFO eviction must ignore recency.
	_, ok := c.Get("a.com")
	require.True(t, ok)

	c.Put("c.com", Metadata{Title: "C"})
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("a.com")
	assert.False(t, ok, "oldest-inserted entry should be evicted")
	_, ok = c.Get("b.com")
	assert.True(t, ok)
	_, ok = c.Get("c.com")
	assert.True(t, ok)
}

func TestCachePutSameKeyDoesNotEvict(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Hour, 2)
	c.Put("a.com", Metadata{Title: "A"})
	c.Put("b.com", Metadata{Title: "B"})
	c.Put("a.com", Metadata{Title: "A2"})

	assert.Equal(t, 2, c.Len())
	got, ok := c.Get("a.com")
	require.True(t, ok)
	assert.Equal(t, "A2", got.Title)
}
