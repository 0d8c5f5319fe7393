package pagemodel

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc receives the reloaded page, or the error that prevented loading it.
type ChangeFunc func(p *Page, err error)

// Watch reloads the page file at path whenever it is written, created or
// renamed into place, and calls fn with the result. Bursts of events closer
// than debounce collapse into one reload. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file so editors that save
// by replacing the file keep triggering reloads.
func Watch(ctx context.Context, path string, debounce time.Duration, fn ChangeFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			fn(nil, fmt.Errorf("file watcher: %w", err))
		case <-timer.C:
			fn(Load(abs))
		}
	}
}
