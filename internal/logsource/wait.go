package logsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/vdrplayer/pkg/log"
)

// WaitForFile blocks until path exists or ctx is done. It watches the parent
// directory, so the file may be created or moved into place.
func WaitForFile(ctx context.Context, path string, logger log.Logger) error {
	if exists(path) {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	// The file may have appeared between the first check and Add.
	if exists(path) {
		return nil
	}

	logger.Info("waiting for log file", log.String("path", path))
	want := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if filepath.Clean(event.Name) != want {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if exists(path) {
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			logger.Warn("log file watcher error", log.Err(err))
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
