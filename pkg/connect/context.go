package connect

import (
	"log/slog"

	ts "github.com/tree-sitter/go-tree-sitter"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/gnana997/codeconnect/pkg/intrinsics"
	"github.com/gnana997/codeconnect/pkg/program"
)

// Config is the part of the project configuration the parsers read.
type Config struct {
	// Label overrides the front end's default document label.
	Label string
	// DocumentURLSubstitutions are applied to every figma node URL, in
	// order. Each replaces the first occurrence of its key.
	DocumentURLSubstitutions *orderedmap.OrderedMap[string, string]
	// ImportPaths map component source paths to the import specifier shown
	// in examples, e.g. "src/components/*" -> "@ui/components".
	ImportPaths *orderedmap.OrderedMap[string, string]
	// StorybookURL is the base URL of a deployed Storybook. Storybook
	// documents link there instead of to the repository.
	StorybookURL string
}

// SourceLinker turns local paths into the URLs documents link to.
type SourceLinker interface {
	// RemoteFileURL returns the URL of path in the hosted repository, or ""
	// when it has none.
	RemoteFileURL(path string) string
	// StorybookURL returns the docs page of the stories in path.
	StorybookURL(path, base string) string
}

// RenderParser parses the function passed to a `render()` modifier.
type RenderParser func(ctx *ParserContext, fn *ts.Node) (*intrinsics.RenderFunction, error)

// ParserContext bundles everything a front end needs to parse one file.
//
// A ParserContext belongs to a single parse of a single file. It owns the
// Generator used for the file's templates, so nested layer variables are
// numbered per file and contexts of different files share no state.
//
// Thread Safety:
//   - Not safe for concurrent use
//   - Any number of contexts, one per file, may be used concurrently
type ParserContext struct {
	Program *program.Program
	File    *program.SourceFile
	// ResolvedImports maps the file's import specifiers to absolute paths.
	ResolvedImports map[string]string
	Config          Config
	Linker          SourceLinker
	Logger          *slog.Logger

	gen    *intrinsics.Generator
	render RenderParser
}

// Option configures a ParserContext.
type Option func(*ParserContext)

// WithConfig sets the project configuration.
func WithConfig(cfg Config) Option {
	return func(c *ParserContext) { c.Config = cfg }
}

// WithLinker sets the source linker.
func WithLinker(l SourceLinker) Option {
	return func(c *ParserContext) { c.Linker = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *ParserContext) { c.Logger = l }
}

// WithRenderParser sets the parser of `render()` modifier functions.
func WithRenderParser(fn RenderParser) Option {
	return func(c *ParserContext) { c.render = fn }
}

// NewParserContext creates the context for parsing file.
func NewParserContext(prog *program.Program, file *program.SourceFile, opts ...Option) *ParserContext {
	c := &ParserContext{
		Program: prog,
		File:    file,
		gen:     intrinsics.NewGenerator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if prog != nil {
		c.ResolvedImports = prog.ResolveImports(file)
	}
	return c
}

// SourceFile returns the file being parsed.
func (c *ParserContext) SourceFile() *program.SourceFile {
	return c.File
}

// Generator returns the template generator of this parse.
func (c *ParserContext) Generator() *intrinsics.Generator {
	return c.gen
}

// ParseRenderFunction parses the argument of a `render()` modifier with the
// front end's render parser.
func (c *ParserContext) ParseRenderFunction(fn *ts.Node) (*intrinsics.RenderFunction, error) {
	if c.render == nil {
		return nil, program.Errorf(c.File, fn, "render() is not supported by this parser")
	}
	return c.render(c, fn)
}

// Text returns the source text of node.
func (c *ParserContext) Text(node *ts.Node) string {
	return c.File.Text(node)
}

// Errorf creates a ParserError located at node in the file being parsed.
func (c *ParserContext) Errorf(node *ts.Node, format string, args ...any) *program.ParserError {
	return program.Errorf(c.File, node, format, args...)
}

// SourceURL returns the URL a document links to for the component declared
// in path: the hosted repository URL when the linker knows one, otherwise
// the path itself.
func (c *ParserContext) SourceURL(path string) string {
	if path == "" {
		return ""
	}
	if c.Linker != nil {
		if url := c.Linker.RemoteFileURL(path); url != "" {
			return url
		}
	}
	return path
}

// LabelOr returns the configured label, or def when none is configured.
func (c *ParserContext) LabelOr(def string) string {
	if c.Config.Label != "" {
		return c.Config.Label
	}
	return def
}

var _ intrinsics.Context = (*ParserContext)(nil)
