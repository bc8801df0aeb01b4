package track

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/racelink/log"
)

// Watch reloads the catalog whenever the catalog file changes. onReload is
// called after each successful reload. Watch blocks until ctx is done.
//
//nolint:funlen,cyclop // event loop
func Watch(ctx context.Context, path string, c *Catalog, onReload func()) error {
	logger := log.Default().Named("track.watch").With(log.String("file", path))
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// editors replace files, watching the directory keeps working after a rename
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	const debounce = 100 * time.Millisecond
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("context done, stopping catalog watch")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				logger.Debug("change detected", log.Any("event", event.Op.String()))
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", log.ErrorField(err))
		case <-timer.C:
			tracks, err := LoadFile(path)
			if err != nil {
				logger.Warn("catalog reload failed, keeping previous tracks", log.ErrorField(err))
				continue
			}
			c.Replace(tracks)
			logger.Info("catalog reloaded", log.Int("tracks", len(tracks)))
			if onReload != nil {
				onReload()
			}
		}
	}
}
