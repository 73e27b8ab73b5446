package logging

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// DefaultSinkBuffer is the number of pending records an AsyncWriter holds
// before it starts dropping.
const DefaultSinkBuffer = 1024

// AsyncWriter buffers writes in a channel and drains them on its own
// goroutine, so Write never blocks on disk. Records are dropped (and
// counted) when the channel is full.
type AsyncWriter struct {
	mu     sync.RWMutex
	closed bool

	ch   chan []byte
	done chan struct{}
	dst  io.WriteCloser
	buf  *bufio.Writer

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewAsyncWriter starts draining into dst. size <= 0 selects DefaultSinkBuffer.
func NewAsyncWriter(dst io.WriteCloser, size int) *AsyncWriter {
	if size <= 0 {
		size = DefaultSinkBuffer
	}
	w := &AsyncWriter{
		ch:   make(chan []byte, size),
		done: make(chan struct{}),
		dst:  dst,
		buf:  bufio.NewWriter(dst),
	}
	go w.run()
	return w
}

// Write enqueues a copy of p. It reports success even when the record is
// dropped; see Dropped.
func (w *AsyncWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return 0, os.ErrClosed
	}

	rec := append([]byte(nil), p...)
	select {
	case w.ch <- rec:
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

func (w *AsyncWriter) run() {
	defer close(w.done)
	for rec := range w.ch {
		if _, err := w.buf.Write(rec); err != nil {
			w.failed.Add(1)
			continue
		}
		if len(w.ch) == 0 {
			if err := w.buf.Flush(); err != nil {
				w.failed.Add(1)
			}
		}
	}
	if err := w.buf.Flush(); err != nil {
		w.failed.Add(1)
	}
}

// Close drains pending records, flushes and closes the destination.
// Calling Close more than once is safe.
func (w *AsyncWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	<-w.done
	return w.dst.Close()
}

// Dropped returns the number of records discarded because the buffer was full.
func (w *AsyncWriter) Dropped() uint64 { return w.dropped.Load() }

// Failed returns the number of records the destination rejected.
func (w *AsyncWriter) Failed() uint64 { return w.failed.Load() }

// SinkConfig controls the diagnostic file sink.
type SinkConfig struct {
	FileName string
	Level    string
	Format   string // json (default) or text
	Buffer   int
}

// Sink is a Logger appending to a file in a log directory.
type Sink struct {
	Logger
	Path   string
	writer *AsyncWriter
}

// OpenSink creates dir if needed and opens cfg.FileName inside it for append.
func OpenSink(dir string, cfg SinkConfig) (*Sink, error) {
	if cfg.FileName == "" {
		cfg.FileName = "cootrans.log"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(dir, cfg.FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	w := NewAsyncWriter(f, cfg.Buffer)
	return &Sink{
		Logger: NewWithWriter(Config{Level: cfg.Level, Format: cfg.Format}, w),
		Path:   path,
		writer: w,
	}, nil
}

// Close flushes pending records and closes the file.
func (s *Sink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

// Dropped reports records lost to back-pressure.
func (s *Sink) Dropped() uint64 {
	if s == nil || s.writer == nil {
		return 0
	}
	return s.writer.Dropped()
}
