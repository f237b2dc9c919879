package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gnana997/codeconnect/pkg/messages"
	"github.com/gnana997/codeconnect/pkg/project"
	"github.com/gnana997/codeconnect/pkg/util"
)

// WorkspaceScanner parses a project into a DocumentIndex.
//
// **Pipeline:**
//  1. File Discovery - the project's include/exclude globs
//  2. Parallel Processing - project.WorkerPool running Runner.ParseFile,
//     skipping files whose content hash is unchanged
//  3. Indexing - results stored in the DocumentIndex, stale files dropped
//
// Only the built-in parsers parse file by file; external parser commands
// take the whole project in one request and cannot be indexed.
//
// **Usage:**
//
//	scanner, err := NewWorkspaceScanner(runner, index, logger)
//	stats, err := scanner.ScanWorkspace(ctx, func(indexed, total int, file string) {
//	    fmt.Printf("Progress: %d/%d - %s\n", indexed, total, file)
//	})
type WorkspaceScanner struct {
	runner *project.Runner
	index  *DocumentIndex
	logger *slog.Logger
}

// NewWorkspaceScanner creates a scanner feeding index from runner.
func NewWorkspaceScanner(runner *project.Runner, index *DocumentIndex, logger *slog.Logger) (*WorkspaceScanner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch parser := runner.Project().Config.Parser; parser {
	case project.ParserReact, project.ParserHTML:
	default:
		return nil, fmt.Errorf("indexing requires the react or html parser, got %q", parser)
	}
	return &WorkspaceScanner{runner: runner, index: index, logger: logger}, nil
}

// Index returns the index the scanner writes to.
func (ws *WorkspaceScanner) Index() *DocumentIndex {
	return ws.index
}

// Runner returns the runner files are parsed with.
func (ws *WorkspaceScanner) Runner() *project.Runner {
	return ws.runner
}

// IndexFile parses one file into the index unless its content is unchanged.
// A file that fails to parse is stored with an ERROR message; the returned
// error is reserved for unreadable files and cancellation.
func (ws *WorkspaceScanner) IndexFile(ctx context.Context, path string) (fd *FileDocuments, changed bool, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	hash := util.ContentHash(content)
	if ws.index.Unchanged(path, hash) {
		if fd, ok := ws.index.Get(path); ok {
			ws.index.ClearDirty(path)
			return fd, false, nil
		}
	}

	prog := ws.runner.Program()
	prog.Invalidate(path)
	if _, err := prog.AddSource(path, content); err != nil {
		return ws.index.Put(path, hash, nil, messages.Messages{project.ErrorMessage(path, err)}), true, nil
	}

	docs, msgs, err := ws.runner.ParseFile(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		ws.logger.Debug("Failed to parse file", "file", path, "error", err)
		msgs = messages.Messages{project.ErrorMessage(path, err)}
		docs = nil
	}
	return ws.index.Put(path, hash, docs, msgs), true, nil
}

// ScanWorkspace re-discovers the project files and brings the index up to
// date with them.
func (ws *WorkspaceScanner) ScanWorkspace(ctx context.Context, progress ProgressCallback) (*ScanStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	startTime := time.Now()
	stats := &ScanStats{StartTime: startTime}

	p := ws.runner.Project()
	ws.logger.Info("Starting workspace scan", "root", p.Dir)

	files, err := project.DiscoverFiles(p.Dir, p.Config, ws.logger)
	if err != nil {
		return nil, fmt.Errorf("file discovery failed: %w", err)
	}
	p.Files = files
	stats.FilesDiscovered = len(files)

	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}
	for _, f := range ws.index.Files() {
		if !present[f] {
			ws.index.RemoveFile(f)
			ws.runner.Program().Invalidate(f)
			stats.FilesRemoved++
		}
	}

	if len(files) > 0 {
		if err := ws.processFilesParallel(ctx, files, stats, progress); err != nil {
			return nil, fmt.Errorf("file processing failed: %w", err)
		}
	}

	stats.DocumentsFound = ws.index.GetStats().TotalDocuments
	stats.EndTime = time.Now()
	stats.TotalTimeMs = time.Since(startTime).Milliseconds()

	ws.logger.Info("Workspace scan complete",
		"files_indexed", stats.FilesIndexed,
		"files_unchanged", stats.FilesUnchanged,
		"files_failed", stats.FilesFailed,
		"documents", stats.DocumentsFound,
		"duration_ms", stats.TotalTimeMs)

	return stats, nil
}

// processFilesParallel runs IndexFile over files on the worker pool and
// tallies the outcome of each file into stats.
func (ws *WorkspaceScanner) processFilesParallel(ctx context.Context, files []string, stats *ScanStats, progress ProgressCallback) error {
	// Each worker writes only the slots of its own file.
	changed := make([]bool, len(files))
	failed := make([]bool, len(files))
	errored := make([]bool, len(files))
	index := make(map[string]int, len(files))
	for i, f := range files {
		index[f] = i
	}

	pool := project.NewWorkerPool(0, func(ctx context.Context, path string) (*project.FileResult, error) {
		i := index[path]
		fd, didChange, err := ws.IndexFile(ctx, path)
		if err != nil {
			errored[i] = true
			return nil, err
		}
		changed[i] = didChange
		failed[i] = fd.HasErrors()
		return &project.FileResult{Docs: fd.Docs, Messages: fd.Messages}, nil
	}, ws.logger)
	stats.WorkerCount = pool.GetStats().NumWorkers
	pool.Start()
	defer pool.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for processed := 1; processed <= len(files); processed++ {
			var file string
			select {
			case <-ctx.Done():
				stats.Cancelled = true
				pool.Cancel()
				return
			case res := <-pool.Results():
				file = res.FilePath
			case fe := <-pool.Errors():
				file = fe.FilePath
				stats.Errors = append(stats.Errors, FileError{FilePath: fe.FilePath, Error: fe.Error})
			}
			if progress != nil {
				progress(processed, len(files), file)
			}
		}
	}()

	for i, file := range files {
		if err := pool.Submit(project.FileJob{FilePath: file, JobID: i}); err != nil {
			break
		}
	}
	pool.FinishSubmitting()
	<-done

	if stats.Cancelled {
		return ctx.Err()
	}

	// Workers have all reported, so the flags are settled.
	for i := range files {
		switch {
		case errored[i]:
			stats.FilesFailed++
		case !changed[i]:
			stats.FilesUnchanged++
		case failed[i]:
			stats.FilesFailed++
		default:
			stats.FilesIndexed++
		}
	}
	return nil
}
