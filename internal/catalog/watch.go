package catalog

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	apperrors "github.com/reynard/nlweb/internal/errors"
	"github.com/reynard/nlweb/pkg/protocol"
)

// DefaultDebounce is how long a file must stay quiet before it is reloaded.
const DefaultDebounce = 250 * time.Millisecond

// ReloadFunc receives the freshly parsed tools of a changed catalog file, or
// the error that prevented loading it. path is the path as given to
// NewWatcher.
type ReloadFunc func(path string, tools []protocol.Tool, err error)

// Watcher reloads catalog files when they change on disk.
//
// Parent directories are watched rather than the files themselves, so
// editors that save by rename keep being tracked.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]string // absolute path -> path as configured
	debounce time.Duration
	onReload ReloadFunc
	logger   zerolog.Logger
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher watches the given catalog files.
func NewWatcher(paths []string, onReload ReloadFunc, logger zerolog.Logger, opts ...WatchOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCatalogLoad, "failed to create catalog watcher", apperrors.CategorySystem)
	}

	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]string, len(paths)),
		debounce: DefaultDebounce,
		onReload: onReload,
		logger:   logger.With().Str("component", "catalog-watcher").Logger(),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, apperrors.Wrap(err, apperrors.CodeCatalogLoad, "invalid catalog path", apperrors.CategoryUser).
				WithContext("path", p)
		}
		w.files[abs] = p
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, apperrors.Wrap(err, apperrors.CodeCatalogLoad, "failed to watch catalog directory", apperrors.CategorySystem).
				WithContext("dir", dir)
		}
	}
	return w, nil
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			path, watched := w.files[filepath.Clean(event.Name)]
			if !watched || !event.Has(fsnotify.Create|fsnotify.Write) {
				continue
			}
			pending[path] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			for path := range pending {
				w.reload(path)
			}
			clear(pending)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("catalog watcher error")
		}
	}
}

func (w *Watcher) reload(path string) {
	tools, err := Load(path)
	if err != nil {
		w.logger.Error().Err(err).Str("path", path).Msg("catalog reload failed, keeping previous tools")
	} else {
		w.logger.Info().Str("path", path).Int("tools", len(tools)).Msg("catalog reloaded")
	}
	w.onReload(path, tools, err)
}
