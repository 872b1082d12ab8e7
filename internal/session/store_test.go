package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squareb/menu-chatbot/internal/cache"
	"github.com/squareb/menu-chatbot/internal/conversation"
	"github.com/squareb/menu-chatbot/internal/domain"
	"github.com/squareb/menu-chatbot/internal/llm"
)

func newRedisStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := cache.NewRedisClient(context.Background(), cache.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return NewStore(c, time.Hour), mr
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryClient(10)
	defer mem.Close()
	redisStore, _ := newRedisStore(t)

	stores := map[string]*Store{
		"memory": NewStore(mem, time.Hour),
		"redis":  redisStore,
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			sess, err := store.Load(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "s1", sess.ID)

			exists, err := store.Exists(ctx, "s1")
			require.NoError(t, err)
			assert.False(t, exists, "loading does not create")
			assert.Zero(t, sess.Len())

			sess.Append(20,
				conversation.Turn{Role: llm.RoleUser, Text: "بكم البيف؟"},
				conversation.Turn{Role: llm.RoleAssistant, Text: "3.50 دينار"},
			)
			require.NoError(t, store.Save(ctx, sess))

			exists, err = store.Exists(ctx, "s1")
			require.NoError(t, err)
			assert.True(t, exists)

			loaded, err := store.Load(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, 2, loaded.Len())
			assert.Equal(t, llm.RoleUser, loaded.History[0].Role)
			assert.Equal(t, "3.50 دينار", loaded.History[1].Text)

			require.NoError(t, store.Delete(ctx, "s1"))
			fresh, err := store.Load(ctx, "s1")
			require.NoError(t, err)
			assert.Zero(t, fresh.Len())

			require.NoError(t, store.Delete(ctx, "never-existed"))
		})
	}
}

func TestStore_Expiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	sess := conversation.NewSession("s2")
	sess.Append(20, conversation.Turn{Role: llm.RoleUser, Text: "hi"})
	require.NoError(t, store.Save(ctx, sess))

	mr.FastForward(2 * time.Hour)
	loaded, err := store.Load(ctx, "s2")
	require.NoError(t, err)
	assert.Zero(t, loaded.Len())
}

func TestStore_Clear(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		require.NoError(t, store.Save(ctx, conversation.NewSession(id)))
	}
	require.NoError(t, mr.Set("chatbot:unrelated", "keep"))

	require.NoError(t, store.Clear(ctx))
	assert.False(t, mr.Exists("chatbot:session:a"))
	assert.False(t, mr.Exists("chatbot:session:b"))
	assert.True(t, mr.Exists("chatbot:unrelated"))
}

func TestStore_CorruptDocument(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("chatbot:session:bad", "{not json"))

	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeStorage))
}

func TestStore_BackendDown(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.Load(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeStorage))
}

func TestLocker_SerializesSameID(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()

	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "same")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			maxInside = max(maxInside, inside)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.Zero(t, l.Len(), "idle locks are dropped")
}

func TestLocker_IndependentIDs(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
	unlockB()
}

func TestLocker_ContextCancel(t *testing.T) {
	l := NewLocker()

	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	unlock()
	assert.Zero(t, l.Len())
}
