// Package program is the symbol and program model the Code Connect
// compiler works against: parsed source files, cross-file import
// resolution, component declaration lookup and props type flattening.
package program

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gnana997/codeconnect/pkg/parser"
	"github.com/gnana997/codeconnect/pkg/parser/queries"
	"github.com/gnana997/codeconnect/pkg/util"
)

// DefaultCacheSize is the number of parsed files kept in memory.
const DefaultCacheSize = 2048

// Config configures a Program.
type Config struct {
	// Root is the absolute project root. Path aliases and baseUrl are
	// resolved relative to it.
	Root string

	// Paths are tsconfig-style path aliases, e.g. {"@ui/*": ["src/ui/*"]}.
	Paths map[string][]string

	// BaseURL is the directory bare specifiers are tried against before
	// node_modules, relative to Root. Empty disables baseUrl resolution.
	BaseURL string

	// CacheSize bounds the parsed file cache. 0 uses DefaultCacheSize.
	CacheSize int
}

// Program owns the parsed source files of one project run.
//
// Files are parsed lazily, on first access, and cached in an LRU. Trees of
// evicted or invalidated files stay alive until Close because callers may
// still hold nodes into them.
//
// Thread Safety:
//   - Safe for concurrent use; each file is parsed at most once per
//     invalidation even when requested by many goroutines
//
// Example:
//
//	prog, err := program.New(program.Config{Root: root}, logger)
//	if err != nil {
//	    return err
//	}
//	defer prog.Close()
//
//	file, err := prog.File("/repo/src/Button.figma.tsx")
type Program struct {
	config  Config
	logger  *slog.Logger
	parsers *parser.ParserManager
	queries *queries.QueryManager
	sources *util.SourceCache

	files   *lru.Cache[string, *SourceFile]
	mu      sync.Mutex
	loading map[string]*loadCall
	retired []*SourceFile

	resolveMu    sync.RWMutex
	resolveCache map[resolveKey]string
}

type loadCall struct {
	done chan struct{}
	file *SourceFile
	err  error
}

// New creates a Program. The returned Program must be closed.
func New(config Config, logger *slog.Logger) (*Program, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultCacheSize
	}
	if config.Root != "" {
		root, err := filepath.Abs(config.Root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %q: %w", config.Root, err)
		}
		config.Root = root
	}

	parsers := parser.NewParserManager(logger)
	p := &Program{
		config:       config,
		logger:       logger,
		parsers:      parsers,
		queries:      queries.NewQueryManager(parsers, logger),
		sources:      util.NewSourceCache(&util.SourceCacheConfig{MaxFiles: config.CacheSize, Logger: logger}),
		loading:      make(map[string]*loadCall),
		resolveCache: make(map[resolveKey]string),
	}

	files, err := lru.NewWithEvict[string, *SourceFile](config.CacheSize, func(_ string, f *SourceFile) {
		// called with p.mu held (all cache mutations happen under it)
		p.retired = append(p.retired, f)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create file cache: %w", err)
	}
	p.files = files

	return p, nil
}

// Config returns the program configuration.
func (p *Program) Config() Config {
	return p.config
}

// ParserStats reports the usage of the program's tree-sitter parsers.
func (p *Program) ParserStats() parser.ParserStats {
	return p.parsers.GetStats()
}

// File returns the parsed file at path, parsing it on first access.
func (p *Program) File(path string) (*SourceFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %q: %w", path, err)
	}

	p.mu.Lock()
	if f, ok := p.files.Get(abs); ok {
		p.mu.Unlock()
		return f, nil
	}
	if call, ok := p.loading[abs]; ok {
		p.mu.Unlock()
		<-call.done
		return call.file, call.err
	}
	call := &loadCall{done: make(chan struct{})}
	p.loading[abs] = call
	p.mu.Unlock()

	call.file, call.err = p.load(abs, nil)

	p.mu.Lock()
	delete(p.loading, abs)
	if call.err == nil {
		p.files.Add(abs, call.file)
	}
	p.mu.Unlock()
	close(call.done)

	return call.file, call.err
}

// AddSource parses src as the contents of path, replacing any cached
// version. Used for unsaved editor buffers and tests.
func (p *Program) AddSource(path string, src []byte) (*SourceFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %q: %w", path, err)
	}

	f, err := p.load(abs, src)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	// Remove runs the eviction callback, which retires the old tree
	p.files.Remove(abs)
	p.files.Add(abs, f)
	p.mu.Unlock()

	return f, nil
}

// Invalidate drops the cached parse of path so the next File call re-reads
// it from disk.
func (p *Program) Invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	p.sources.Invalidate(abs)

	p.mu.Lock()
	p.files.Remove(abs)
	p.mu.Unlock()

	p.resolveMu.Lock()
	clear(p.resolveCache)
	p.resolveMu.Unlock()
}

func (p *Program) load(abs string, src []byte) (*SourceFile, error) {
	start := time.Now()

	if src == nil {
		data, err := p.sources.Read(abs)
		if err != nil {
			return nil, err
		}
		src = data
	}

	tree, err := p.parsers.ParseFile(src, abs)
	if err != nil {
		return nil, err
	}

	f, err := newSourceFile(abs, src, tree, p.queries)
	if err != nil {
		tree.Close()
		return nil, err
	}

	p.logger.Debug("parsed source file",
		"file", abs,
		"imports", len(f.imports),
		"ms", time.Since(start).Milliseconds())

	return f, nil
}

// Close releases every tree, parser and mapped file.
func (p *Program) Close() error {
	p.mu.Lock()
	p.files.Purge()
	for _, f := range p.retired {
		f.close()
	}
	p.retired = nil
	p.mu.Unlock()

	p.queries.Close()
	p.parsers.Close()
	return p.sources.Close()
}
