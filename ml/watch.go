package ml

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchArtifacts logs a warning whenever one of the served artifact files is
// written, replaced or removed. It never reloads anything: the running process
// keeps serving what it loaded at start. Blocks until ctx is done.
//
// The watcher is advisory. When it cannot be set up (inotify limits, missing
// directory) it logs the reason and returns nil without waiting.
func WatchArtifacts(ctx context.Context, logger *zap.Logger, paths ...string) error {
	if err := watchArtifacts(ctx, logger, paths); err != nil {
		logger.Warn("artifact watcher disabled", zap.Error(err))
	}
	return nil
}

func watchArtifacts(ctx context.Context, logger *zap.Logger, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("artifact watcher: %w", err)
	}
	defer watcher.Close()

	// Watch directories so that atomic replace (write tmp + rename) is seen.
	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				logger.Warn("served artifact changed on disk, restart to load it",
					zap.String("path", event.Name),
					zap.String("op", event.Op.String()))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("artifact watcher error", zap.Error(err))
		}
	}
}
