package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // if true, walk roots and emit existing files
	Debounce    time.Duration // coalesce rapid create/write bursts per file
	Logger      *slog.Logger
}

// StartWatcher emits supported document paths created or written under cfg.Roots.
// Both channels are closed once ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("ingest.watch.start_failed", "error", "no roots provided")
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.start_failed", "error", err)
		return nil, nil, err
	}

	var initial []string
	for _, r := range cfg.Roots {
		err := filepath.WalkDir(r, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != r && IsHidden(path) {
					return filepath.SkipDir
				}
				return w.Add(path)
			}
			if cfg.InitialScan && watchable(path) {
				initial = append(initial, path)
			}
			return nil
		})
		if err != nil {
			logger.Error("ingest.watch.add_root_failed", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}
	sort.Strings(initial)

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)
	logger.Info("ingest.watch.started", "roots", cfg.Roots, "initial", len(initial))

	go func() {
		var (
			mu      sync.Mutex
			pending = map[string]struct{}{}
			timer   *time.Timer
			flush   = make(chan struct{}, 1)
		)
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if timer != nil {
				timer.Stop()
			}
			if err := w.Close(); err != nil {
				logger.Warn("ingest.watch.close_failed", "error", err)
			}
		}()

		emit := func(path string) bool {
			select {
			case evCh <- path:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		sendPending := func() bool {
			mu.Lock()
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			pending = map[string]struct{}{}
			mu.Unlock()
			sort.Strings(batch)
			for _, p := range batch {
				if !emit(p) {
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-flush:
				if !sendPending() {
					return
				}
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create == fsnotify.Create {
					tryAddDir(w, e.Name, logger)
				}
				if !watchable(e.Name) || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debug("ingest.watch.event", "path", e.Name, "op", e.Op.String())

				mu.Lock()
				pending[e.Name] = struct{}{}
				mu.Unlock()
				if cfg.Debounce <= 0 {
					if !sendPending() {
						return
					}
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(cfg.Debounce, func() {
					select {
					case flush <- struct{}{}:
					default:
					}
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func watchable(path string) bool {
	return !IsHidden(path) && AllowedExt(filepath.Ext(path))
}

// tryAddDir starts watching path when it is a newly created directory.
func tryAddDir(w *fsnotify.Watcher, path string, logger *slog.Logger) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.Add(path); err != nil {
		logger.Warn("ingest.watch.add_dir_failed", "path", path, "error", err)
	}
}
