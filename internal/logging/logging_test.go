package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

// blockingWriter never returns from Write until released.
type blockingWriter struct {
	entered chan struct{}
	once    sync.Once
	release chan struct{}
	mu      sync.Mutex
	n       int
}

func (b *blockingWriter) Write(p []byte) (int, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	b.mu.Lock()
	b.n++
	b.mu.Unlock()
	return len(p), nil
}

func (b *blockingWriter) Close() error { return nil }

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)
	log.With(String("planet", "mars")).Debug(context.Background(), "lookup", Float("radius", 3396190), Int("n", 2))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "lookup", rec["msg"])
	assert.Equal(t, "mars", rec["planet"])
	assert.Equal(t, 3396190.0, rec["radius"])
	assert.Equal(t, 2.0, rec["n"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "warn", Format: "text"}, &buf)
	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown", Err(os.ErrNotExist))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "file does not exist")
}

func TestWithSessionAddsID(t *testing.T) {
	var buf bytes.Buffer
	log, id := WithSession(NewWithWriter(Config{Format: "json"}, &buf))
	require.NotEmpty(t, id)
	log.Info(context.Background(), "hello")
	assert.Contains(t, buf.String(), id)

	_, other := WithSession(nil)
	assert.NotEqual(t, id, other)
}

func TestTee(t *testing.T) {
	var a, b bytes.Buffer
	log := Tee(NewWithWriter(Config{}, &a), nil, NewWithWriter(Config{}, &b))
	log.With(String("k", "v")).Error(context.Background(), "both")
	assert.Contains(t, a.String(), "both")
	assert.Contains(t, b.String(), "k=v")

	assert.Equal(t, Noop(), Tee(nil, nil))
}

func TestAsyncWriterFlushesOnClose(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewAsyncWriter(nopCloser{buf}, 16)
	for i := 0; i < 10; i++ {
		_, err := w.Write([]byte("line\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	assert.Equal(t, 10, strings.Count(buf.String(), "line"))
	_, err := w.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestAsyncWriterDropsInsteadOfBlocking(t *testing.T) {
	dst := &blockingWriter{entered: make(chan struct{}), release: make(chan struct{})}
	w := NewAsyncWriter(dst, 1)

	_, err := w.Write([]byte("first\n"))
	require.NoError(t, err)
	<-dst.entered

	// The drain goroutine is stuck on the first record, so one more record
	// fits in the channel and the rest are dropped.
	for i := 0; i < 50; i++ {
		_, err := w.Write([]byte("x\n"))
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(49), w.Dropped())

	close(dst.release)
	require.NoError(t, w.Close())
}

func TestOpenSinkAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	for i := 0; i < 2; i++ {
		sink, err := OpenSink(dir, SinkConfig{Level: "info"})
		require.NoError(t, err)
		sink.Info(context.Background(), "initialized", Int("round", i))
		require.NoError(t, sink.Close())
		assert.Zero(t, sink.Dropped())
	}

	data, err := os.ReadFile(filepath.Join(dir, "cootrans.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Equal(t, "initialized", rec["msg"])
	}
}
