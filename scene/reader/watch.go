package reader

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/achilleasa/gpurt/scene"
)

// Editors often emit several events for a single save; events arriving
// within this window are coalesced.
var WatchDebounce = 100 * time.Millisecond

// Watch re-reads the scene config at path every time it changes and passes
// the result to fn. Configs that fail to load are logged and skipped. The
// parent directory is watched so that editors replacing the file on save
// are handled. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, fn func(*scene.Config)) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err = watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}
	logger.Infof(`watching "%s" for changes`, absPath)

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != absPath || evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(WatchDebounce)
			trigger = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warningf("watch error: %v", err)
		case <-trigger:
			trigger = nil
			cfg, err := ReadConfig(absPath)
			if err != nil {
				logger.Errorf("could not reload scene config: %v", err)
				continue
			}
			logger.Notice("scene config changed; reloading")
			fn(cfg)
		}
	}
}
