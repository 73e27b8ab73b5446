// Package watch triggers a callback when files under a configuration
// directory change, coalescing bursts of events into a single call.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/signalsfoundry/cootrans/internal/logging"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	Dir      string
	Debounce time.Duration
}

// Watcher observes a directory tree and calls OnChange after changes settle.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	log      logging.Logger
	onChange func(context.Context)

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start begins watching cfg.Dir recursively. onChange runs on the watcher's
// goroutine, never concurrently with itself.
func Start(cfg Config, onChange func(context.Context), log logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Noop()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		log:      log,
		onChange: onChange,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	if err := w.addRecursive(cfg.Dir); err != nil {
		cancel()
		_ = fsw.Close()
		return nil, err
	}

	go w.run(ctx)
	log.Info(ctx, "config watcher started",
		logging.String("dir", cfg.Dir),
		logging.String("debounce", cfg.Debounce.String()),
	)
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit, including
// any callback in flight.
func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	var err error
	w.once.Do(func() {
		w.cancel()
		err = w.fsw.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		base := d.Name()
		if path != root && strings.HasPrefix(base, ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn(context.Background(), "failed to watch directory",
				logging.String("path", path),
				logging.Err(err),
			)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	timer := time.NewTimer(w.cfg.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}
			w.log.Debug(ctx, "config change observed",
				logging.String("path", event.Name),
				logging.String("op", event.Op.String()),
			)
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.cfg.Debounce)
			pending = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn(ctx, "config watcher error", logging.Err(err))

		case <-timer.C:
			pending = false
			if w.onChange != nil {
				w.onChange(ctx)
			}
		}
	}
}

// relevant filters out attribute-only changes and editor swap files.
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~") && !strings.HasSuffix(base, ".swp")
}
