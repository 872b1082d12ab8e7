package menu

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/squareb/menu-chatbot/internal/domain"
)

func TestStore_CurrentBeforeLoad(t *testing.T) {
	s := NewStore(StaticSource("BEEF 1x1 - 3.50"))
	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestStore_ReloadKeepsPreviousOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.txt")
	require.NoError(t, os.WriteFile(path, []byte("## SIDES\n- Fries - 1.00 دينار\n"), 0o644))

	var attempts, failures int
	s := NewStore(FileSource{Path: path}, WithReloadHook(func(idx *Index, err error, _ time.Duration) {
		attempts++
		if err != nil {
			failures++
		}
	}))

	first, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Len())

	require.NoError(t, os.WriteFile(path, []byte("nothing to see here\n"), 0o644))
	_, err = s.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeParse))
	assert.ErrorIs(t, err, ErrNoItems)

	live, err := s.Current()
	require.NoError(t, err)
	assert.Same(t, first, live)

	require.NoError(t, os.Remove(path))
	_, err = s.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeParse))

	live, err = s.Current()
	require.NoError(t, err)
	assert.Same(t, first, live)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, failures)
}

type countingSource struct {
	reads atomic.Int32
	text  string
	delay time.Duration
}

func (c *countingSource) Read(ctx context.Context) (string, error) {
	c.reads.Add(1)
	select {
	case <-time.After(c.delay):
		return c.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *countingSource) Name() string { return "counting" }

func TestStore_ConcurrentReadsDuringReload(t *testing.T) {
	src := &countingSource{text: "## DRINKS\n- Pepsi - 0.75 دينار\n- Water - 0.35 دينار\n", delay: 20 * time.Millisecond}
	s := NewStore(src)
	_, err := s.Reload(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.Reload(context.Background())
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			idx, err := s.Current()
			if assert.NoError(t, err) {
				assert.Equal(t, 2, idx.Len())
				assert.NotEmpty(t, idx.Search("pepsi", DefaultThreshold))
			}
		}()
	}
	wg.Wait()

	assert.Less(t, int(src.reads.Load()), 9, "concurrent reloads coalesce")
}

func TestStore_ReloadHonoursContext(t *testing.T) {
	src := &countingSource{text: "- Fries - 1.00", delay: time.Second}
	s := NewStore(src)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Reload(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "menu.txt")
	require.NoError(t, os.WriteFile(path, []byte("## SIDES\n- Fries - 1.00 دينار\n"), 0o644))

	s := NewStore(FileSource{Path: path})
	_, err := s.Reload(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := NewWatcher(s, path, 20*time.Millisecond, nil)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("## SIDES\n- Fries - 1.00 دينار\n- Salad - 1.25 دينار\n"), 0o644))

	assert.Eventually(t, func() bool {
		idx, err := s.Current()
		return err == nil && idx.Len() == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
