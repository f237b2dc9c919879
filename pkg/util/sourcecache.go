package util

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/edsrzf/mmap-go"
)

// SourceCache keeps source files memory-mapped between parses.
//
// Code Connect files and the component files they import are read many times
// during a project run (every connect file importing Button re-reads
// Button.tsx), and again on every watch cycle. Mapping a file once and
// slicing it is cheaper than repeated os.ReadFile calls.
//
// Read always returns a private copy of the file contents. Tree-sitter trees
// and extracted text outlive the mapping (Invalidate unmaps immediately when
// a watched file changes), so callers never hold a slice into mapped memory.
//
// Thread Safety:
//   - Safe for concurrent use; reads share an RWMutex, loads and
//     invalidation take the write lock
//
// Example:
//
//	cache := util.NewSourceCache(nil)
//	defer cache.Close()
//
//	src, err := cache.Read("/repo/src/Button.figma.tsx")
//	if err != nil {
//	    return err
//	}
type SourceCache struct {
	config *SourceCacheConfig
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*mappedSource

	statsMu sync.Mutex
	stats   SourceCacheStats
}

// SourceCacheConfig controls SourceCache limits.
type SourceCacheConfig struct {
	// MaxFiles caps the number of mapped files. When the cap is reached new
	// files are read with os.ReadFile and not retained. 0 means unlimited.
	MaxFiles int

	// MaxMemoryMB caps the total mapped size. 0 means unlimited.
	MaxMemoryMB int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultSourceCacheConfig returns limits that cover large monorepos.
func DefaultSourceCacheConfig() *SourceCacheConfig {
	return &SourceCacheConfig{
		MaxFiles:    10000,
		MaxMemoryMB: 2048,
	}
}

// SourceCacheStats tracks cache behaviour.
type SourceCacheStats struct {
	Hits          int64
	Misses        int64
	Uncached      int64 // reads served without retaining (limits reached)
	MmapFailures  int64
	Invalidations int64
	FilesCached   int
	MappedMB      float64
}

type mappedSource struct {
	data     mmap.MMap
	file     *os.File
	fallback []byte
	size     int64
	modTime  time.Time
}

func (m *mappedSource) bytes() []byte {
	if m.fallback != nil {
		return m.fallback
	}
	return m.data
}

func (m *mappedSource) release() error {
	var errs []error
	if m.data != nil {
		if err := m.data.Unmap(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.file != nil {
		if err := m.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewSourceCache creates a SourceCache. A nil config uses
// DefaultSourceCacheConfig().
func NewSourceCache(config *SourceCacheConfig) *SourceCache {
	if config == nil {
		config = DefaultSourceCacheConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SourceCache{
		config:  config,
		logger:  logger,
		entries: make(map[string]*mappedSource),
	}
}

// Read returns a copy of the file's contents.
//
// A cached mapping is reused only while the file's size and modification
// time are unchanged; otherwise it is dropped and the file mapped again.
func (c *SourceCache) Read(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	}

	c.mu.RLock()
	entry, ok := c.entries[path]
	if ok && entry.size == info.Size() && entry.modTime.Equal(info.ModTime()) {
		out := bytes.Clone(entry.bytes())
		c.mu.RUnlock()
		c.record(func(s *SourceCacheStats) { s.Hits++ })
		return nonNil(out), nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if stale, ok := c.entries[path]; ok {
		if stale.size == info.Size() && stale.modTime.Equal(info.ModTime()) {
			c.record(func(s *SourceCacheStats) { s.Hits++ })
			return nonNil(bytes.Clone(stale.bytes())), nil
		}
		c.dropLocked(path, stale)
	}
	c.record(func(s *SourceCacheStats) { s.Misses++ })

	if !c.hasRoomLocked(info.Size()) {
		c.record(func(s *SourceCacheStats) { s.Uncached++ })
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
		return data, nil
	}

	entry, err = c.load(path, info)
	if err != nil {
		return nil, err
	}
	c.entries[path] = entry

	return nonNil(bytes.Clone(entry.bytes())), nil
}

// Invalidate unmaps a file so that the next Read sees fresh contents.
// Invalidating an unknown path is a no-op.
func (c *SourceCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[path]; ok {
		c.dropLocked(path, entry)
		c.record(func(s *SourceCacheStats) { s.Invalidations++ })
	}
}

// Len returns the number of mapped files.
func (c *SourceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of cache metrics.
func (c *SourceCache) Stats() SourceCacheStats {
	c.mu.RLock()
	files := len(c.entries)
	mapped := c.mappedBytesLocked()
	c.mu.RUnlock()

	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	stats := c.stats
	stats.FilesCached = files
	stats.MappedMB = float64(mapped) / (1024 * 1024)
	return stats
}

// Close unmaps every cached file.
func (c *SourceCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for path, entry := range c.entries {
		if err := entry.release(); err != nil {
			errs = append(errs, fmt.Errorf("release %q: %w", path, err))
		}
	}
	c.entries = make(map[string]*mappedSource)

	c.logger.Debug("source cache closed",
		"hits", c.stats.Hits,
		"misses", c.stats.Misses,
		"mmap_failures", c.stats.MmapFailures)

	return errors.Join(errs...)
}

// load maps a file, falling back to os.ReadFile when mmap fails.
// Must be called while holding mu.Lock.
func (c *SourceCache) load(path string, info os.FileInfo) (*mappedSource, error) {
	entry := &mappedSource{size: info.Size(), modTime: info.ModTime()}

	// mmap rejects zero-length mappings
	if info.Size() == 0 {
		entry.fallback = []byte{}
		return entry, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		file.Close()
		c.logger.Warn("mmap failed, using fallback", "file", path, "error", err)
		c.record(func(s *SourceCacheStats) { s.MmapFailures++ })

		fallback, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("mmap and read both failed for %q: %w", path, errors.Join(err, readErr))
		}
		entry.fallback = fallback
		return entry, nil
	}

	entry.data = data
	entry.file = file
	return entry, nil
}

func (c *SourceCache) dropLocked(path string, entry *mappedSource) {
	if err := entry.release(); err != nil {
		c.logger.Warn("failed to release mapped source", "file", path, "error", err)
	}
	delete(c.entries, path)
}

func (c *SourceCache) hasRoomLocked(size int64) bool {
	if c.config.MaxFiles > 0 && len(c.entries) >= c.config.MaxFiles {
		return false
	}
	if c.config.MaxMemoryMB > 0 {
		limit := int64(c.config.MaxMemoryMB) * 1024 * 1024
		if c.mappedBytesLocked()+size > limit {
			return false
		}
	}
	return true
}

func (c *SourceCache) mappedBytesLocked() int64 {
	var total int64
	for _, entry := range c.entries {
		total += entry.size
	}
	return total
}

func (c *SourceCache) record(update func(*SourceCacheStats)) {
	c.statsMu.Lock()
	update(&c.stats)
	c.statsMu.Unlock()
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
