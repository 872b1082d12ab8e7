package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func setupRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := NewRedisClient(context.Background(), RedisConfig{Addr: mr.Addr(), Prefix: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestClients(t *testing.T) {
	ctx := context.Background()

	clients := map[string]func(t *testing.T) Client{
		"memory": func(t *testing.T) Client {
			c := NewMemoryClient(100)
			t.Cleanup(func() { _ = c.Close() })
			return c
		},
		"redis": func(t *testing.T) Client {
			c, _ := setupRedis(t)
			return c
		},
	}

	for name, newClient := range clients {
		t.Run(name, func(t *testing.T) {
			c := newClient(t)

			_, err := c.Get(ctx, "missing")
			assert.True(t, errors.Is(err, ErrCacheMiss))

			require.NoError(t, c.Set(ctx, SessionKey("a"), []byte("one"), time.Minute))
			require.NoError(t, c.Set(ctx, SessionKey("b"), []byte("two"), time.Minute))
			require.NoError(t, c.Set(ctx, "other", []byte("three"), time.Minute))

			got, err := c.Get(ctx, SessionKey("a"))
			require.NoError(t, err)
			assert.Equal(t, []byte("one"), got)

			require.NoError(t, c.Delete(ctx, SessionKey("a")))
			_, err = c.Get(ctx, SessionKey("a"))
			assert.True(t, errors.Is(err, ErrCacheMiss))

			require.NoError(t, c.DeleteByPrefix(ctx, "session:"))
			_, err = c.Get(ctx, SessionKey("b"))
			assert.True(t, errors.Is(err, ErrCacheMiss))

			got, err = c.Get(ctx, "other")
			require.NoError(t, err)
			assert.Equal(t, []byte("three"), got)
		})
	}
}

func TestRedisClient_PrefixAndTTL(t *testing.T) {
	c, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("test:k"))

	mr.FastForward(2 * time.Minute)
	_, err := c.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestRedisClient_PubSub(t *testing.T) {
	c, _ := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, stop, err := c.Subscribe(ctx, "events")
	require.NoError(t, err)
	defer stop()

	require.NoError(t, c.Publish(ctx, "events", []byte("reload")))

	select {
	case m := <-msgs:
		assert.Equal(t, []byte("reload"), m)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisClient(context.Background(), RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestMemoryClient_Expiry(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("x"), time.Millisecond))
	require.NoError(t, c.Set(ctx, "forever", []byte("y"), 0))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.True(t, errors.Is(err, ErrCacheMiss))
	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryClient_Eviction(t *testing.T) {
	c := NewMemoryClient(2)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))

	assert.Equal(t, 2, c.Len())
	_, err := c.Get(ctx, "a")
	assert.True(t, errors.Is(err, ErrCacheMiss), "entry closest to expiry is evicted")

	// Overwriting an existing key does not evict.
	require.NoError(t, c.Set(ctx, "b", []byte("2b"), time.Hour))
	assert.Equal(t, 2, c.Len())
}

func TestMemoryClient_CopiesValues(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'z'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestMemoryClient_SweeperStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := newMemoryClient(10, time.Millisecond)
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Nanosecond))
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "a:b:c", CacheKey("a", "b", "c"))
	assert.Equal(t, "session:42", SessionKey("42"))
}
