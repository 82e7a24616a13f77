package monomer

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

// ReloadFunc is notified after each reload attempt with the number of
// monomers merged or the failure.
type ReloadFunc func(count int, err error)

// WatchLibrary merges the library at path into store every time the file is
// written or re-created, until ctx is done.  An invalid file leaves the store
// unchanged.  The watch runs in its own goroutine; the returned error only
// reports setup failures.
func WatchLibrary(ctx context.Context, path string, store *MemoryStore, logger logging.Logger, onReload ReloadFunc) error {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot create library watcher")
	}
	// Watch the directory so editors that replace the file are still seen.
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot watch monomer library").WithDetailf("path=%s", path)
	}

	target := filepath.Clean(path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				n, err := reload(path, store)
				if err != nil {
					logger.Warn("monomer library reload failed", logging.String("path", path), logging.Err(err))
				} else {
					logger.Info("monomer library reloaded", logging.String("path", path), logging.Int("monomers", n))
				}
				if onReload != nil {
					onReload(n, err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("monomer library watcher error", logging.Err(err))
			}
		}
	}()
	return nil
}

func reload(path string, store *MemoryStore) (int, error) {
	monomers, err := LoadLibrary(path)
	if err != nil {
		return 0, err
	}
	if err := store.Merge(monomers); err != nil {
		return 0, err
	}
	return len(monomers), nil
}
