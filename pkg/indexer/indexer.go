package indexer

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/messages"
	"github.com/gnana997/codeconnect/pkg/validation"
)

// DocumentIndex holds the parsed Code Connect documents of a project, keyed
// by file, with a reverse index from Figma node to the files connecting it.
//
// **Architecture:**
//   - LRU cache of FilePath → FileDocuments
//   - Reverse index of Figma node → files, kept in step with the cache
//   - Lazy invalidation: the watcher marks changed files dirty before
//     re-parsing them
//
// **Thread Safety:**
//   - Uses sync.RWMutex for concurrent access
//   - Atomic counters for statistics
//
// **Usage:**
//
//	index := NewDocumentIndex(DefaultDocumentIndexConfig(), logger)
//	defer index.Close()
//
//	index.Put(path, util.ContentHash(src), docs, msgs)
//	docs := index.FindByNode("https://www.figma.com/design/abc?node-id=1-2")
type DocumentIndex struct {
	fileCache *lru.Cache[string, *FileDocuments]

	// node key → set of files
	nodeToFiles map[string]map[string]struct{}

	dirtyFiles map[string]bool

	mu sync.RWMutex

	indexedFiles   atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	evictions      atomic.Int64
	totalIndexTime atomic.Int64 // Microseconds

	config DocumentIndexConfig
	logger *slog.Logger
}

// NewDocumentIndex creates an empty index. Call Close() when done.
func NewDocumentIndex(config DocumentIndexConfig, logger *slog.Logger) *DocumentIndex {
	if config.MaxCachedFiles == 0 {
		config.MaxCachedFiles = DefaultDocumentIndexConfig().MaxCachedFiles
	}
	if logger == nil {
		logger = slog.Default()
	}

	di := &DocumentIndex{
		nodeToFiles: make(map[string]map[string]struct{}),
		dirtyFiles:  make(map[string]bool),
		config:      config,
		logger:      logger,
	}

	// The callback also runs on Remove and Purge, always with di.mu held.
	cache, err := lru.NewWithEvict(config.MaxCachedFiles, func(key string, value *FileDocuments) {
		di.unlinkNodesUnsafe(value)
		if config.Debug {
			logger.Debug("LRU dropping file", "path", key, "docs", len(value.Docs))
		}
	})
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	di.fileCache = cache

	logger.Debug("DocumentIndex initialized", "max_cached_files", config.MaxCachedFiles)
	return di
}

// NodeKey normalises a Figma node URL to "fileKey/nodeId" so that URLs
// differing only in host, path slug or id separator compare equal. URLs
// that cannot be parsed are used verbatim.
func NodeKey(figmaNode string) string {
	n, err := validation.ParseFigmaNode(figmaNode)
	if err != nil {
		return figmaNode
	}
	return n.FileKey + "/" + n.NodeID
}

// Put stores the parse result of a file, replacing any previous entry.
func (di *DocumentIndex) Put(filePath, contentHash string, docs []*connect.Document, msgs messages.Messages) *FileDocuments {
	start := time.Now()
	defer func() {
		di.totalIndexTime.Add(time.Since(start).Microseconds())
	}()

	fd := &FileDocuments{
		FilePath:    filePath,
		Docs:        docs,
		Messages:    msgs,
		Timestamp:   time.Now().UnixMilli(),
		ContentHash: contentHash,
	}

	di.mu.Lock()
	defer di.mu.Unlock()

	di.fileCache.Remove(filePath)
	if di.fileCache.Add(filePath, fd) {
		di.evictions.Add(1)
	}
	for _, doc := range docs {
		key := NodeKey(doc.FigmaNode)
		files, ok := di.nodeToFiles[key]
		if !ok {
			files = make(map[string]struct{})
			di.nodeToFiles[key] = files
		}
		files[filePath] = struct{}{}
	}
	delete(di.dirtyFiles, filePath)
	di.indexedFiles.Add(1)

	if di.config.Debug {
		di.logger.Debug("Indexed file", "path", filePath, "docs", len(docs), "messages", len(msgs))
	}
	return fd
}

// unlinkNodesUnsafe drops the reverse-index entries of fd.
// Must be called with the write lock held.
func (di *DocumentIndex) unlinkNodesUnsafe(fd *FileDocuments) {
	for _, doc := range fd.Docs {
		key := NodeKey(doc.FigmaNode)
		files := di.nodeToFiles[key]
		delete(files, fd.FilePath)
		if len(files) == 0 {
			delete(di.nodeToFiles, key)
		}
	}
}

// Get returns the entry for a file.
func (di *DocumentIndex) Get(filePath string) (*FileDocuments, bool) {
	di.mu.Lock() // Get updates recency
	defer di.mu.Unlock()

	fd, found := di.fileCache.Get(filePath)
	if found {
		di.cacheHits.Add(1)
	} else {
		di.cacheMisses.Add(1)
	}
	return fd, found
}

// Unchanged reports whether filePath is held with the given content hash.
func (di *DocumentIndex) Unchanged(filePath, contentHash string) bool {
	di.mu.RLock()
	defer di.mu.RUnlock()

	fd, ok := di.fileCache.Peek(filePath)
	return ok && fd.ContentHash == contentHash
}

// All returns every held file, sorted by path.
func (di *DocumentIndex) All() []*FileDocuments {
	di.mu.RLock()
	defer di.mu.RUnlock()

	keys := di.fileCache.Keys()
	result := make([]*FileDocuments, 0, len(keys))
	for _, key := range keys {
		if fd, ok := di.fileCache.Peek(key); ok {
			result = append(result, fd)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FilePath < result[j].FilePath })
	return result
}

// Files returns the paths of every held file, sorted.
func (di *DocumentIndex) Files() []string {
	all := di.All()
	paths := make([]string, len(all))
	for i, fd := range all {
		paths[i] = fd.FilePath
	}
	return paths
}

// Documents returns every held document ordered by file path, then source
// order.
func (di *DocumentIndex) Documents() []*connect.Document {
	return di.FindDocuments(func(*connect.Document) bool { return true })
}

// Messages returns the messages of every held file ordered by file path.
func (di *DocumentIndex) Messages() messages.Messages {
	var msgs messages.Messages
	for _, fd := range di.All() {
		msgs = append(msgs, fd.Messages...)
	}
	return msgs
}

// FindDocuments returns the documents matching predicate, in the order of
// Documents.
//
// **Example:**
//
//	stories := index.FindDocuments(func(d *connect.Document) bool {
//	    return d.Label == connect.LabelStorybook
//	})
func (di *DocumentIndex) FindDocuments(predicate func(*connect.Document) bool) []*connect.Document {
	var result []*connect.Document
	for _, fd := range di.All() {
		for _, doc := range fd.Docs {
			if predicate(doc) {
				result = append(result, doc)
			}
		}
	}
	return result
}

// FindByNode returns the documents connecting the given Figma node, ordered
// by file path then source order.
func (di *DocumentIndex) FindByNode(figmaNode string) []*connect.Document {
	key := NodeKey(figmaNode)

	di.mu.RLock()
	files := make([]string, 0, len(di.nodeToFiles[key]))
	for f := range di.nodeToFiles[key] {
		files = append(files, f)
	}
	entries := make([]*FileDocuments, 0, len(files))
	for _, f := range files {
		if fd, ok := di.fileCache.Peek(f); ok {
			entries = append(entries, fd)
		}
	}
	di.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].FilePath < entries[j].FilePath })

	var result []*connect.Document
	for _, fd := range entries {
		for _, doc := range fd.Docs {
			if NodeKey(doc.FigmaNode) == key {
				result = append(result, doc)
			}
		}
	}
	return result
}

// FindByComponent returns the documents whose component name equals name.
func (di *DocumentIndex) FindByComponent(name string) []*connect.Document {
	return di.FindDocuments(func(d *connect.Document) bool { return d.Component == name })
}

// InvalidateFile marks a file as dirty. Its documents stay queryable until
// the next Put or RemoveFile.
func (di *DocumentIndex) InvalidateFile(filePath string) {
	di.mu.Lock()
	di.dirtyFiles[filePath] = true
	di.mu.Unlock()

	if di.config.Debug {
		di.logger.Debug("Invalidated file", "path", filePath)
	}
}

// ClearDirty drops the dirty mark of a file whose content turned out to be
// unchanged.
func (di *DocumentIndex) ClearDirty(filePath string) {
	di.mu.Lock()
	delete(di.dirtyFiles, filePath)
	di.mu.Unlock()
}

// IsDirty checks if a file is marked for re-parsing.
func (di *DocumentIndex) IsDirty(filePath string) bool {
	di.mu.RLock()
	defer di.mu.RUnlock()

	return di.dirtyFiles[filePath]
}

// RemoveFile removes a file and its documents from the index.
func (di *DocumentIndex) RemoveFile(filePath string) {
	di.mu.Lock()
	defer di.mu.Unlock()

	di.fileCache.Remove(filePath)
	delete(di.dirtyFiles, filePath)

	if di.config.Debug {
		di.logger.Debug("Removed file", "path", filePath)
	}
}

// GetStats returns current index statistics.
func (di *DocumentIndex) GetStats() DocumentIndexStats {
	di.mu.RLock()
	cachedFiles := di.fileCache.Len()
	dirtyFiles := len(di.dirtyFiles)
	nodes := len(di.nodeToFiles)
	totalDocs, failed := 0, 0
	for _, key := range di.fileCache.Keys() {
		if fd, ok := di.fileCache.Peek(key); ok {
			totalDocs += len(fd.Docs)
			if fd.HasErrors() {
				failed++
			}
		}
	}
	di.mu.RUnlock()

	hits := di.cacheHits.Load()
	misses := di.cacheMisses.Load()
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	indexedCount := di.indexedFiles.Load()
	avgTime := 0.0
	if indexedCount > 0 {
		avgTime = float64(di.totalIndexTime.Load()) / float64(indexedCount) / 1000.0 // μs to ms
	}

	return DocumentIndexStats{
		IndexedFiles:       int(indexedCount),
		CachedFiles:        cachedFiles,
		TotalDocuments:     totalDocs,
		FigmaNodes:         nodes,
		DirtyFiles:         dirtyFiles,
		FailedFiles:        failed,
		CacheHits:          hits,
		CacheMisses:        misses,
		CacheHitRate:       hitRate,
		Evictions:          di.evictions.Load(),
		AverageIndexTimeMs: avgTime,
	}
}

// Close releases everything held by the index. The index cannot be used
// afterwards.
func (di *DocumentIndex) Close() {
	di.mu.Lock()
	defer di.mu.Unlock()

	di.fileCache.Purge()
	di.nodeToFiles = nil
	di.dirtyFiles = nil

	di.logger.Debug("DocumentIndex closed")
}
