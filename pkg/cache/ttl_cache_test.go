package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*TTLCache[string, struct{}], *time.Time) {
	t.Helper()
	c := New[string, struct{}](ttl, time.Hour)
	t.Cleanup(c.Close)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestSeenReportsSecondDelivery(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	assert.False(t, c.Seen("evt-1"))
	assert.True(t, c.Seen("evt-1"))
	assert.False(t, c.Seen("evt-2"))
	assert.Equal(t, 2, c.Len())
}

func TestSeenForgetsAfterTTL(t *testing.T) {
	c, now := newTestCache(t, time.Minute)

	require.False(t, c.Seen("evt-1"))
	*now = now.Add(2 * time.Minute)
	assert.False(t, c.Seen("evt-1"), "expired entry must be treated as new")
}

func TestGetSetAndEvict(t *testing.T) {
	c, now := newTestCache(t, time.Minute)

	c.Set("a", struct{}{})
	_, ok := c.Get("a")
	assert.True(t, ok)

	*now = now.Add(time.Hour)
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.evictExpired()
	assert.Equal(t, 0, c.Len())
}

func TestClearAndCloseTwice(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	c.Set("a", struct{}{})
	c.Clear()
	assert.Equal(t, 0, c.Len())

	c.Close()
	c.Close()
}
