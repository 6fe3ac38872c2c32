package filelink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	DefaultIndexTTL = 5 * time.Minute
	DefaultDebounce = 250 * time.Millisecond
	maxWatchedDirs  = 4096
	indexKey        = "files"
)

// skipDirs are never indexed
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".hg":          true,
	".svn":         true,
	"vendor":       true,
	"dist":         true,
	"out":          true,
}

// IndexConfig configures a workspace file index
type IndexConfig struct {
	Root     string
	TTL      time.Duration
	Debounce time.Duration
	Watch    bool
	Logger   *zap.Logger
}

// Index caches the workspace-relative file list of one root. The list is
// rebuilt lazily after the TTL expires or a watched directory changes.
type Index struct {
	root     string
	cache    *gocache.Cache
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	watched map[string]bool
	done    chan struct{}
	closed  bool

	builds int
}

// NewIndex creates an index for cfg.Root
func NewIndex(cfg IndexConfig) (*Index, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultIndexTTL
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("index root: %w", err)
	}

	ix := &Index{
		root:     root,
		cache:    gocache.New(cfg.TTL, 2*cfg.TTL),
		logger:   cfg.Logger,
		debounce: cfg.Debounce,
		watched:  make(map[string]bool),
		done:     make(chan struct{}),
	}

	if cfg.Watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
		}
		ix.watcher = w
		go ix.loop()
	}
	return ix, nil
}

// Root returns the indexed directory
func (ix *Index) Root() string {
	return ix.root
}

// Files returns workspace-relative, slash-separated paths in lexical order
func (ix *Index) Files(ctx context.Context) ([]string, error) {
	if v, ok := ix.cache.Get(indexKey); ok {
		if files, ok := v.([]string); ok {
			return files, nil
		}
	}

	files, dirs, err := ix.walk(ctx)
	if err != nil {
		return nil, err
	}
	ix.cache.SetDefault(indexKey, files)
	ix.watchDirs(dirs)

	ix.mu.Lock()
	ix.builds++
	ix.mu.Unlock()

	ix.logger.Debug("Workspace index rebuilt",
		zap.String("root", ix.root),
		zap.Int("files", len(files)))
	return files, nil
}

// Invalidate drops the cached file list
func (ix *Index) Invalidate() {
	ix.cache.Delete(indexKey)
}

// Builds reports how many times the list has been rebuilt
func (ix *Index) Builds() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.builds
}

func (ix *Index) walk(ctx context.Context) ([]string, []string, error) {
	var (
		mu    sync.Mutex
		files []string
		dirs  []string
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, ix.root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != ix.root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			mu.Lock()
			dirs = append(dirs, p)
			mu.Unlock()
			return nil
		}

		rel, err := filepath.Rel(ix.root, p)
		if err != nil {
			return nil
		}
		mu.Lock()
		files = append(files, filepath.ToSlash(rel))
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", ix.root, err)
	}

	sort.Strings(files)
	return files, dirs, nil
}

func (ix *Index) watchDirs(dirs []string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.watcher == nil || ix.closed {
		return
	}
	for _, dir := range dirs {
		if ix.watched[dir] || len(ix.watched) >= maxWatchedDirs {
			continue
		}
		if err := ix.watcher.Add(dir); err != nil {
			ix.logger.Debug("Watch failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
		ix.watched[dir] = true
	}
}

// loop invalidates the cache after a quiet period following any structural
// change in a watched directory.
func (ix *Index) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-ix.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(ix.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(ix.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			ix.Invalidate()

		case err, ok := <-ix.watcher.Errors:
			if !ok {
				return
			}
			ix.logger.Warn("Workspace watcher error", zap.Error(err))

		case <-ix.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// Close stops the watcher
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return nil
	}
	ix.closed = true
	close(ix.done)
	if ix.watcher != nil {
		return ix.watcher.Close()
	}
	return nil
}
