package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	fired := make(chan struct{}, 8)

	w, err := Start(Config{Dir: dir, Debounce: 100 * time.Millisecond}, func(context.Context) {
		calls.Add(1)
		fired <- struct{}{}
	}, nil)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "earth.yaml"), []byte{byte('a' + i)}, 0o644))
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("callback not invoked")
	}
	// Give a second debounce window a chance to fire if coalescing failed.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcherSeesNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	fired := make(chan struct{}, 8)

	w, err := Start(Config{Dir: dir, Debounce: 50 * time.Millisecond}, func(context.Context) {
		fired <- struct{}{}
	}, nil)
	require.NoError(t, err)
	defer w.Close()

	sub := filepath.Join(dir, "moons")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitFired(t, fired)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "luna.yaml"), []byte("datums: []"), 0o644))
	waitFired(t, fired)
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := Start(Config{Dir: t.TempDir()}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.cfg.Debounce)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	var nilWatcher *Watcher
	assert.NoError(t, nilWatcher.Close())
}

func TestStartFailsForMissingDirectory(t *testing.T) {
	_, err := Start(Config{Dir: filepath.Join(t.TempDir(), "absent")}, nil, nil)
	assert.Error(t, err)
}

func TestRelevant(t *testing.T) {
	assert.True(t, relevant(fsnotify.Event{Name: "/c/earth.yaml", Op: fsnotify.Write}))
	assert.False(t, relevant(fsnotify.Event{Name: "/c/earth.yaml", Op: fsnotify.Chmod}))
	assert.False(t, relevant(fsnotify.Event{Name: "/c/.earth.yaml.swp", Op: fsnotify.Create}))
	assert.False(t, relevant(fsnotify.Event{Name: "/c/earth.yaml~", Op: fsnotify.Write}))
}

func waitFired(t *testing.T, fired <-chan struct{}) {
	t.Helper()
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("callback not invoked")
	}
}
