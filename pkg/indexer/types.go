package indexer

import (
	"time"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/messages"
)

// FileDocuments is everything parsed from a single file.
//
// This is the unit of caching in the DocumentIndex. A file's documents and
// messages are stored together so a change to the file replaces both.
type FileDocuments struct {
	// FilePath is the absolute path to the file
	FilePath string

	// Docs are the Code Connect documents declared in the file, in source
	// order
	Docs []*connect.Document

	// Messages are the parser messages for the file. A file that failed to
	// parse has no documents and a single ERROR message.
	Messages messages.Messages

	// Timestamp when the file was indexed (Unix milliseconds)
	Timestamp int64

	// ContentHash is the xxh3 fingerprint of the file content, used to skip
	// re-parsing unchanged files
	ContentHash string
}

// HasErrors reports whether the file failed to parse.
func (f *FileDocuments) HasErrors() bool {
	return f.Messages.HasErrors()
}

// DocumentIndexConfig configures the document index.
type DocumentIndexConfig struct {
	// MaxCachedFiles is the maximum number of files to keep in the LRU cache.
	// Default: 5000 files
	MaxCachedFiles int

	// Debug enables verbose logging
	Debug bool
}

// DefaultDocumentIndexConfig returns the default configuration.
func DefaultDocumentIndexConfig() DocumentIndexConfig {
	return DocumentIndexConfig{
		MaxCachedFiles: 5000,
		Debug:          false,
	}
}

// DocumentIndexStats provides statistics about the index state.
type DocumentIndexStats struct {
	// IndexedFiles is the total number of index updates (including evicted
	// files)
	IndexedFiles int

	// CachedFiles is the number of files currently held
	CachedFiles int

	// TotalDocuments is the number of documents currently held
	TotalDocuments int

	// FigmaNodes is the number of distinct Figma nodes with documents
	FigmaNodes int

	// DirtyFiles is the number of files changed on disk but not re-parsed
	DirtyFiles int

	// FailedFiles is the number of held files whose last parse failed
	FailedFiles int

	CacheHits    int64
	CacheMisses  int64
	CacheHitRate float64 // 0.0 - 1.0

	// Evictions is the number of LRU evictions that have occurred
	Evictions int64

	// AverageIndexTimeMs is the average time to store a file
	AverageIndexTimeMs float64
}

// ScanStats contains statistics about a workspace scan.
type ScanStats struct {
	// FilesDiscovered is the number of files matching the project globs
	FilesDiscovered int

	// FilesIndexed is the number of files parsed during the scan
	FilesIndexed int

	// FilesUnchanged is the number of files skipped because their content
	// hash matched the index
	FilesUnchanged int

	// FilesFailed is the number of files that failed to parse
	FilesFailed int

	// FilesRemoved is the number of indexed files no longer in the project
	FilesRemoved int

	// DocumentsFound is the number of documents held after the scan
	DocumentsFound int

	TotalTimeMs int64
	WorkerCount int

	// Errors contains per-file errors (if any)
	Errors []FileError

	// Cancelled indicates if the scan was cancelled
	Cancelled bool

	StartTime time.Time
	EndTime   time.Time
}

// FileError represents an error that occurred while processing a file.
type FileError struct {
	FilePath string
	Error    error
}

// ProgressCallback is called after each file during workspace scanning.
//
// Parameters:
//   - indexed: Number of files processed so far
//   - total: Total number of files to process
//   - currentFile: Path of the file just processed
type ProgressCallback func(indexed, total int, currentFile string)

// WatchOptions configures file watching behavior.
type WatchOptions struct {
	// DebounceMs is the debounce delay in milliseconds.
	// Multiple rapid changes are grouped into a single re-parse.
	// Default: 200ms
	DebounceMs int

	// IgnorePatterns are extra doublestar globs, relative to the project
	// root, to ignore on top of the project's exclude globs
	IgnorePatterns []string

	// OnUpdate is called after a changed file is re-parsed
	OnUpdate func(*FileDocuments)

	// OnRemove is called after a deleted file leaves the index
	OnRemove func(path string)
}

// DefaultWatchOptions returns recommended watch options.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		DebounceMs: 200,
		IgnorePatterns: []string{
			"**/*.swp",
			"**/*.tmp",
			"**/*~",
			".git/**",
		},
	}
}
