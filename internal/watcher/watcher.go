// Package watcher observes the corpus root and schedules a debounced full
// rebuild when files change. Bursts of filesystem events (editor saves,
// rsync runs) collapse into a single rebuild.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 2 * time.Second

// Watcher watches a corpus root recursively and invokes onRebuild after
// changes settle.
type Watcher struct {
	root       string
	extensions []string
	onRebuild  func()
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	started bool

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for event diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides how long changes must settle before onRebuild fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher over root. extensions filters which file changes
// count (empty = all); directory changes always count because they can move
// whole subtrees in or out. onRebuild runs on the watcher's goroutine.
func New(root string, extensions []string, onRebuild func(), opts ...Option) *Watcher {
	w := &Watcher{
		root:       filepath.Clean(root),
		extensions: extensions,
		onRebuild:  onRebuild,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	if err := w.watchTree(w.root); err != nil {
		_ = fsw.Close()
		w.fsw = nil
		w.mu.Unlock()
		return err
	}
	w.started = true
	w.mu.Unlock()

	w.logger.Debug("watcher started",
		zap.String("root", w.root),
		zap.Duration("debounce", w.debounce),
	)
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	relevant := false
	switch {
	case ev.Op.Has(fsnotify.Create):
		// A new directory needs watching before events inside it are seen.
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.fsw != nil {
				_ = w.watchTree(ev.Name)
			}
			w.mu.Unlock()
			relevant = true
			break
		}
		relevant = w.matchExtension(ev.Name)
	case ev.Op.Has(fsnotify.Write):
		relevant = w.matchExtension(ev.Name)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		// Remove and Rename report the old path, which may have been a
		// directory; its type is unknowable now, so count it.
		relevant = true
	}
	if !relevant {
		return
	}
	w.logger.Debug("corpus change",
		zap.String("op", ev.Op.String()),
		zap.String("path", ev.Name),
	)
	w.schedule()
}

// schedule arms (or re-arms) the single rebuild timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.logger.Info("corpus changes settled, triggering rebuild")
		w.onRebuild()
	})
}

// watchTree adds root and every subdirectory to the fsnotify watcher.
// Caller holds w.mu or is initializing.
func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); path != root && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Stop stops watching and cancels any pending rebuild.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.fsw != nil {
		_ = w.fsw.Close()
		w.fsw = nil
	}
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
