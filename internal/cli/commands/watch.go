package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/leapmodel/internal/ingest"
)

const defaultDebounce = 200 * time.Millisecond

// watchInput calls run once, then again after every burst of changes to
// the input, until ctx is done. A directory input is watched as a whole;
// a file input through its parent directory, filtered to the file.
func watchInput(ctx context.Context, input string, debounce time.Duration, logger *slog.Logger, run func() error) error {
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", input, err)
	}
	dir, only := input, ""
	if !info.IsDir() {
		dir, only = filepath.Dir(input), filepath.Clean(input)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	if err := run(); err != nil {
		return err
	}
	logger.Info("watching for changes", slog.String("path", input))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, only) {
				continue
			}
			logger.Debug("input changed", slog.String("file", event.Name), slog.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			if err := run(); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", slog.Any("error", err))
		}
	}
}

// relevant filters events to supported data files (or the watched file).
func relevant(event fsnotify.Event, only string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if only != "" {
		return filepath.Clean(event.Name) == only
	}
	return ingest.Supported(event.Name)
}
