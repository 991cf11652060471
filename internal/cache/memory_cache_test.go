package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheTTLAndMetrics(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "player:1", []byte("rec"), time.Minute))
	require.NoError(t, c.Set(ctx, "player:2", []byte("forever"), 0))

	v, err := c.Get(ctx, "player:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("rec"), v)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "player:1")
	assert.ErrorIs(t, err, ErrCacheMiss, "запись с истёкшим TTL не отдаётся")

	_, err = c.Get(ctx, "player:2")
	assert.NoError(t, err, "TTL 0 не истекает")

	require.NoError(t, c.Delete(ctx, "player:2"))
	_, err = c.Get(ctx, "player:2")
	assert.ErrorIs(t, err, ErrCacheMiss)

	m := c.GetMetrics()
	assert.EqualValues(t, 4, m.TotalRequests)
	assert.EqualValues(t, 2, m.CacheHits)
	assert.InDelta(t, 0.5, m.HitRatio, 1e-9)
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
}
