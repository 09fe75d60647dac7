package metadata

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dlowans/facet/internal/clock"
	"github.com/dlowans/facet/internal/debounce"
)

// reloadDelay coalesces the flurry of fsnotify events an editor save
// produces into one reload.
const reloadDelay = 250 * time.Millisecond

// Watcher keeps a Cache in sync with a file-backed Source, reloading
// whenever the file changes. A failed reload keeps the previous data
// and logs; the cache never regresses to empty because of a bad edit.
type Watcher struct {
	source  *FileSource
	cache   *Cache
	logger  *log.Logger
	watcher *fsnotify.Watcher
	reload  *debounce.Debouncer

	done chan struct{}
	wg   sync.WaitGroup
	mu   sync.Mutex
	open bool
}

// NewWatcher creates a watcher feeding cache from source. Call Start
// to begin watching and Stop to tear down.
func NewWatcher(source *FileSource, cache *Cache, clk clock.Clock, logger *log.Logger) (*Watcher, error) {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[metadata] ", log.LstdFlags)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		source:  source,
		cache:   cache,
		logger:  logger,
		watcher: fw,
		reload:  debounce.New(clk, reloadDelay),
		done:    make(chan struct{}),
	}, nil
}

// Start performs an initial load, then watches the file's directory
// for changes. Watching the directory rather than the file survives
// atomic save-via-rename.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.open {
		return fmt.Errorf("watcher already running")
	}

	if err := w.loadOnce(ctx); err != nil {
		return err
	}

	dir := filepath.Dir(w.source.Path())
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.open = true
	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop tears down the watcher and blocks until its loop exits. Safe to
// call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return nil
	}
	w.open = false
	w.mu.Unlock()

	close(w.done)
	w.reload.Close()
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}
	w.wg.Wait()
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.reload.Trigger(func() {
				if err := w.loadOnce(ctx); err != nil {
					w.logger.Printf("reload failed, keeping previous data: %v", err)
				} else {
					w.logger.Printf("reloaded %s", w.source.Path())
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watch error: %v", err)
		}
	}
}

// relevant filters directory events down to writes touching the
// reference file itself.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.source.Path()) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) loadOnce(ctx context.Context) error {
	d, err := w.source.LoadMetadata(ctx)
	if err != nil {
		return err
	}
	w.cache.Set(d)
	return nil
}
