package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gnana997/codeconnect/pkg/project"
)

// FileWatcher watches a project for changes and re-parses changed files
// into the index.
//
// **Features:**
//   - Debouncing - Groups rapid changes to avoid redundant re-parsing
//   - Selective - Only files matching the project include globs are parsed
//   - Content hashing - Saves that leave a file byte-identical are skipped
//
// **Usage:**
//
//	watcher, err := NewFileWatcher(scanner, DefaultWatchOptions(), logger)
//	if err != nil {
//	    return err
//	}
//	if err := watcher.Start(); err != nil {
//	    return err
//	}
//	defer watcher.Stop()
type FileWatcher struct {
	watcher *fsnotify.Watcher
	scanner *WorkspaceScanner
	root    string
	include []string
	ignore  []string
	logger  *slog.Logger
	options WatchOptions

	// Debouncing
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// Lifecycle
	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	started  bool
	stopped  bool
	mu       sync.Mutex
}

// NewFileWatcher creates a watcher over the project of scanner.
func NewFileWatcher(scanner *WorkspaceScanner, options WatchOptions, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if options.DebounceMs == 0 {
		options.DebounceMs = 200
	}

	p := scanner.Runner().Project()
	include, exclude, err := project.Globs(p.Config)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &FileWatcher{
		watcher:        watcher,
		scanner:        scanner,
		root:           p.Dir,
		include:        include,
		ignore:         append(exclude, options.IgnorePatterns...),
		logger:         logger,
		options:        options,
		debounceTimers: make(map[string]*time.Timer),
		ctx:            ctx,
		cancel:         cancel,
		stopChan:       make(chan struct{}),
	}, nil
}

// Start watches every directory of the project that is not ignored and
// processes events in the background.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	if fw.stopped {
		fw.mu.Unlock()
		return fmt.Errorf("watcher already stopped")
	}
	if fw.started {
		fw.mu.Unlock()
		return fmt.Errorf("watcher already started")
	}
	fw.started = true
	fw.mu.Unlock()

	if err := fw.watcher.Add(fw.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", fw.root, err)
	}
	if err := fw.addTree(fw.root); err != nil {
		return fmt.Errorf("failed to setup watches: %w", err)
	}

	fw.logger.Info("File watcher started", "root", fw.root)

	go fw.eventLoop()
	return nil
}

// addTree watches dir and its subdirectories.
func (fw *FileWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != fw.root && fw.shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Stop stops the file watcher. Safe to call multiple times.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.stopped {
		return nil
	}

	fw.stopped = true
	fw.cancel()
	close(fw.stopChan)

	fw.debounceMu.Lock()
	for _, timer := range fw.debounceTimers {
		timer.Stop()
	}
	fw.debounceTimers = make(map[string]*time.Timer)
	fw.debounceMu.Unlock()

	err := fw.watcher.Close()
	fw.logger.Info("File watcher stopped")
	return err
}

func (fw *FileWatcher) eventLoop() {
	for {
		select {
		case <-fw.stopChan:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("File watcher error", "error", err)
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	filePath := event.Name

	if fw.shouldIgnore(filePath) {
		return
	}

	if event.Has(fsnotify.Create) && isDir(filePath) {
		if err := fw.addTree(filePath); err != nil {
			fw.logger.Warn("Failed to watch new directory", "path", filePath, "error", err)
		}
		return
	}

	if !project.Matches(fw.include, fw.relPath(filePath)) {
		return
	}

	fw.logger.Debug("File event", "op", event.Op.String(), "file", filePath)

	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		fw.scanner.Index().InvalidateFile(filePath)
		fw.debounceReindex(filePath)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		fw.removeFile(filePath)
	}
}

// debounceReindex schedules a re-parse after the debounce delay. Only the
// last event inside the window triggers it.
func (fw *FileWatcher) debounceReindex(filePath string) {
	fw.debounceMu.Lock()
	defer fw.debounceMu.Unlock()

	if timer, exists := fw.debounceTimers[filePath]; exists {
		timer.Stop()
	}

	fw.debounceTimers[filePath] = time.AfterFunc(
		time.Duration(fw.options.DebounceMs)*time.Millisecond,
		func() {
			fw.reindexFile(filePath)

			fw.debounceMu.Lock()
			delete(fw.debounceTimers, filePath)
			fw.debounceMu.Unlock()
		},
	)
}

func (fw *FileWatcher) reindexFile(filePath string) {
	fw.logger.Debug("Reindexing file", "file", filePath)

	fd, changed, err := fw.scanner.IndexFile(fw.ctx, filePath)
	if err != nil {
		if fw.ctx.Err() == nil {
			fw.logger.Warn("Failed to reindex file", "file", filePath, "error", err)
		}
		return
	}
	if !changed {
		return
	}

	fw.logger.Debug("File reindexed", "file", filePath, "docs", len(fd.Docs))
	if fw.options.OnUpdate != nil {
		fw.options.OnUpdate(fd)
	}
}

func (fw *FileWatcher) removeFile(filePath string) {
	if _, ok := fw.scanner.Index().Get(filePath); !ok {
		return
	}
	fw.logger.Debug("Removing file from index", "file", filePath)
	fw.scanner.Index().RemoveFile(filePath)
	fw.scanner.Runner().Program().Invalidate(filePath)
	if fw.options.OnRemove != nil {
		fw.options.OnRemove(filePath)
	}
}

func (fw *FileWatcher) relPath(path string) string {
	rel, err := filepath.Rel(fw.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// shouldIgnore checks the project exclude globs and the extra ignore
// patterns against path and its base name.
func (fw *FileWatcher) shouldIgnore(path string) bool {
	rel := fw.relPath(path)
	if project.Matches(fw.ignore, rel) {
		return true
	}
	// Directory globs such as "node_modules/**" also cover the directory.
	if project.Matches(fw.ignore, rel+"/") {
		return true
	}

	switch filepath.Base(path) {
	case "node_modules", ".git", "dist", "build", ".next":
		return true
	}
	return false
}

// GetStats returns file watcher statistics.
func (fw *FileWatcher) GetStats() FileWatcherStats {
	fw.debounceMu.Lock()
	pendingReindexes := len(fw.debounceTimers)
	fw.debounceMu.Unlock()

	fw.mu.Lock()
	running := fw.started && !fw.stopped
	fw.mu.Unlock()

	return FileWatcherStats{
		PendingReindexes: pendingReindexes,
		IsRunning:        running,
	}
}

// FileWatcherStats contains file watcher statistics.
type FileWatcherStats struct {
	PendingReindexes int
	IsRunning        bool
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
