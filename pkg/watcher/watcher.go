// Package watcher reports new and changed model files in watched directories.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultExtensions are the file types picked up by default
var DefaultExtensions = []string{".stl", ".scad"}

// FileWatcher watches directories and files, and calls back once per file
// after its writes have settled for the debounce interval
type FileWatcher struct {
	watcher    *fsnotify.Watcher
	debounce   time.Duration
	extensions map[string]bool
	logger     *zap.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending sync.WaitGroup
}

// NewFileWatcher creates a watcher for files with the given extensions
// (DefaultExtensions when empty)
func NewFileWatcher(debounce time.Duration, logger *zap.Logger, extensions ...string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}
	return &FileWatcher{
		watcher:    watcher,
		debounce:   debounce,
		extensions: exts,
		logger:     logger,
		timers:     make(map[string]*time.Timer),
	}, nil
}

// Watch adds directories or individual files
func (fw *FileWatcher) Watch(paths ...string) error {
	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", p, err)
		}
		if err := fw.watcher.Add(absPath); err != nil {
			return fmt.Errorf("failed to watch %s: %w", absPath, err)
		}
		fw.logger.Debug("watching", zap.String("path", absPath))
	}
	return nil
}

// Matches reports whether path has one of the watched extensions
func (fw *FileWatcher) Matches(path string) bool {
	return fw.extensions[strings.ToLower(filepath.Ext(path))]
}

// Run dispatches settled changes to callback until ctx is done or the
// watcher is closed. Pending callbacks are waited for before returning.
func (fw *FileWatcher) Run(ctx context.Context, callback func(path string)) error {
	defer fw.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			// Only trigger on write or create events
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && fw.Matches(event.Name) {
				fw.handleFileChange(event.Name, callback)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// handleFileChange restarts the debounce timer of the file
func (fw *FileWatcher) handleFileChange(filePath string, callback func(string)) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if timer, exists := fw.timers[filePath]; exists {
		if timer.Stop() {
			fw.pending.Done()
		}
	}

	fw.pending.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(fw.debounce, func() {
		defer fw.pending.Done()
		fw.mu.Lock()
		if fw.timers[filePath] == timer {
			delete(fw.timers, filePath)
		}
		fw.mu.Unlock()
		callback(filePath)
	})
	fw.timers[filePath] = timer
}

func (fw *FileWatcher) stopTimers() {
	fw.mu.Lock()
	for path, timer := range fw.timers {
		if timer.Stop() {
			fw.pending.Done()
		}
		delete(fw.timers, path)
	}
	fw.mu.Unlock()
	fw.pending.Wait()
}

// Close stops the watcher
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}
