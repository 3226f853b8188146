// Package watch reports changes to the input files of a planning run (record
// dump and hierarchy definitions) so the plan can be rebuilt.
//
// Bursts of filesystem events are coalesced: at most one change is reported
// per interval, naming the files touched since the previous report.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/studioph/StaticPatcher/internal/logging"
)

const defaultInterval = 500 * time.Millisecond

var (
	// ErrNoFiles is returned when there is nothing to watch.
	ErrNoFiles = errors.New("no files to watch")

	// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
	ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")
)

// Change is a coalesced set of modified files.
type Change struct {
	Paths []string
	Time  time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the minimum time between two reported changes.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher watches a fixed set of files. The parent directories are watched
// rather than the files so that editors replacing a file by rename are seen.
type Watcher struct {
	files    map[string]struct{}
	dirs     []string
	interval time.Duration
	logger   *logging.Logger

	watcher *fsnotify.Watcher
	changes chan Change

	mu      sync.Mutex
	pending map[string]struct{}
	kick    chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a watcher for paths. Empty paths are ignored.
func New(paths []string, opts ...Option) (*Watcher, error) {
	files := make(map[string]struct{}, len(paths))
	dirSet := make(map[string]struct{})
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		files[abs] = struct{}{}
		dirSet[filepath.Dir(abs)] = struct{}{}
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	w := &Watcher{
		files:    files,
		dirs:     dirs,
		interval: defaultInterval,
		logger:   logging.NewNop(),
		changes:  make(chan Change, 1),
		pending:  make(map[string]struct{}),
		kick:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. Changes are delivered on Changes until ctx is done
// or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	for _, d := range w.dirs {
		if err := fw.Add(d); err != nil {
			_ = fw.Close()
			return fmt.Errorf("watching %s: %w", d, err)
		}
	}
	w.watcher = fw

	ctx, w.cancel = context.WithCancel(ctx)
	limiter := rate.NewLimiter(rate.Every(w.interval), 1)

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.emit(ctx, limiter)

	w.logger.Debug(ctx, "watching files", zap.Strings("dirs", w.dirs), zap.Int("files", len(w.files)))
	return nil
}

// Changes returns the channel of coalesced changes.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Stop stops watching and waits for the background goroutines to exit.
// It is safe to call more than once.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		w.wg.Wait()
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			path := filepath.Clean(event.Name)
			if _, watched := w.files[path]; !watched {
				continue
			}
			w.mu.Lock()
			w.pending[path] = struct{}{}
			w.mu.Unlock()
			select {
			case w.kick <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) emit(ctx context.Context, limiter *rate.Limiter) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		w.mu.Lock()
		paths := make([]string, 0, len(w.pending))
		for p := range w.pending {
			paths = append(paths, p)
		}
		w.pending = make(map[string]struct{})
		w.mu.Unlock()
		if len(paths) == 0 {
			continue
		}
		sort.Strings(paths)

		select {
		case w.changes <- Change{Paths: paths, Time: time.Now()}:
		case <-ctx.Done():
			return
		}
	}
}
