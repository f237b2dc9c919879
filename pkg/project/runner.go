package project

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/html"
	"github.com/gnana997/codeconnect/pkg/messages"
	"github.com/gnana997/codeconnect/pkg/program"
	"github.com/gnana997/codeconnect/pkg/react"
	"github.com/gnana997/codeconnect/pkg/storybook"
)

// Project is a resolved project: its directory, config and files.
type Project struct {
	// Dir is the absolute project directory.
	Dir    string
	Config *Config
	Files  []string
}

// Load resolves the config of the project in dir and discovers its files.
// configPath may be empty.
func Load(dir, configPath string, logger *slog.Logger) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path: %w", err)
	}
	cfg, err := ResolveConfig(abs, configPath, logger)
	if err != nil {
		return nil, err
	}
	files, err := DiscoverFiles(abs, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Project{Dir: abs, Config: cfg, Files: files}, nil
}

// Options configure a Runner.
type Options struct {
	// ContinueOnError records a file that fails to parse as an ERROR message
	// and carries on. Otherwise the first failure aborts the run.
	ContinueOnError bool
	// Workers is the worker pool size. 0 uses util.GetOptimalPoolSize.
	Workers int
	// Linker links documents to their source. nil uses the git remote of
	// the project.
	Linker connect.SourceLinker
	// Verbose is forwarded to external parsers.
	Verbose bool
}

// Runner parses the files of a project.
//
// Thread Safety:
//   - Safe for concurrent use; each file is parsed with its own
//     ParserContext
type Runner struct {
	project *Project
	opts    Options
	prog    *program.Program
	linker  connect.SourceLinker
	logger  *slog.Logger
	runID   string
}

// NewRunner creates a runner for p. The returned Runner must be closed.
func NewRunner(p *Project, opts Options, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()
	logger = logger.With("run", runID)

	prog, err := program.New(program.Config{
		Root:    p.Dir,
		Paths:   p.Config.Paths,
		BaseURL: ".",
	}, logger)
	if err != nil {
		return nil, err
	}

	linker := opts.Linker
	if linker == nil {
		linker = NewGitLinker(p.Dir, logger)
	}

	return &Runner{
		project: p,
		opts:    opts,
		prog:    prog,
		linker:  linker,
		logger:  logger,
		runID:   runID,
	}, nil
}

// Close releases the parsed files.
func (r *Runner) Close() error {
	return r.prog.Close()
}

// Program returns the program files are parsed with.
func (r *Runner) Program() *program.Program {
	return r.prog
}

// Project returns the project being run.
func (r *Runner) Project() *Project {
	return r.project
}

// RunID identifies this runner in logs.
func (r *Runner) RunID() string {
	return r.runID
}

// Run parses all files of the project.
func (r *Runner) Run(ctx context.Context) (*messages.ParseResponse, error) {
	return r.ParseFiles(ctx, r.project.Files)
}

// ParseFiles parses the given files. Built-in parsers run on the worker
// pool; other parsers get all files in a single request.
func (r *Runner) ParseFiles(ctx context.Context, files []string) (*messages.ParseResponse, error) {
	start := time.Now()
	var resp *messages.ParseResponse
	var err error
	switch r.project.Config.Parser {
	case ParserReact, ParserHTML:
		resp, err = r.parseParallel(ctx, files)
	default:
		resp, err = r.parseExternal(ctx, files)
	}
	if err != nil {
		return nil, err
	}
	r.logger.Info("parse complete",
		"files", len(files),
		"docs", len(resp.Docs),
		"ms", time.Since(start).Milliseconds())
	return resp, nil
}

func (r *Runner) parseExternal(ctx context.Context, files []string) (*messages.ParseResponse, error) {
	cfg := r.project.Config
	if cfg.ParserCommand == "" {
		return nil, fmt.Errorf("parser %q requires parserCommand in the config file", cfg.Parser)
	}
	req := messages.NewParseRequest(files, cfg)
	req.Verbose = r.opts.Verbose
	return messages.NewExecutable(cfg.ParserCommand, r.project.Dir, r.logger).Parse(ctx, req)
}

func (r *Runner) parseParallel(ctx context.Context, files []string) (*messages.ParseResponse, error) {
	total := len(files)
	resp := &messages.ParseResponse{Docs: []*connect.Document{}, Messages: messages.Messages{}}
	if total == 0 {
		return resp, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pool := NewWorkerPool(r.opts.Workers, func(ctx context.Context, path string) (*FileResult, error) {
		docs, msgs, err := r.ParseFile(ctx, path)
		if err != nil {
			return nil, err
		}
		return &FileResult{Docs: docs, Messages: msgs}, nil
	}, r.logger)
	pool.Start()
	defer pool.Stop()

	var results []FileResult
	var failures []FileError
	var abort error

	done := make(chan struct{})
	go func() {
		defer close(done)
		for seen := 0; seen < total; seen++ {
			select {
			case <-ctx.Done():
				abort = ctx.Err()
				pool.Cancel()
				return
			case res := <-pool.Results():
				results = append(results, res)
			case fe := <-pool.Errors():
				if !r.opts.ContinueOnError {
					abort = fe.Error
					pool.Cancel()
					return
				}
				failures = append(failures, fe)
			}
		}
	}()

	for i, file := range files {
		if err := pool.Submit(FileJob{FilePath: file, JobID: i}); err != nil {
			break
		}
	}
	pool.FinishSubmitting()
	<-done

	if abort != nil {
		return nil, abort
	}

	sort.Slice(results, func(i, j int) bool { return results[i].JobID < results[j].JobID })
	sort.Slice(failures, func(i, j int) bool { return failures[i].JobID < failures[j].JobID })

	for _, res := range results {
		resp.Docs = append(resp.Docs, res.Docs...)
		resp.Messages = append(resp.Messages, res.Messages...)
	}
	for _, fe := range failures {
		resp.Messages = append(resp.Messages, ErrorMessage(fe.FilePath, fe.Error))
	}
	return resp, nil
}

// ParseFile parses one file with the project's front end. Files without
// Code Connect content yield no documents.
func (r *Runner) ParseFile(ctx context.Context, path string) ([]*connect.Document, messages.Messages, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	start := time.Now()

	file, err := r.prog.File(path)
	if err != nil {
		return nil, nil, err
	}

	opts := []connect.Option{
		connect.WithConfig(r.project.Config.ConnectConfig()),
		connect.WithLinker(r.linker),
		connect.WithLogger(r.logger),
	}

	var docs []*connect.Document
	switch {
	case r.project.Config.Parser == ParserReact && storybook.IsStoryFile(path):
		docs, err = storybook.ParseFile(storybook.NewParserContext(r.prog, file, opts...))
	case len(connect.ConnectCalls(file)) == 0:
		return nil, nil, nil
	case r.project.Config.Parser == ParserReact:
		docs, err = react.ParseFile(react.NewParserContext(r.prog, file, opts...))
	case r.project.Config.Parser == ParserHTML:
		docs, err = html.ParseFile(html.NewParserContext(r.prog, file, opts...))
	default:
		return nil, nil, fmt.Errorf("parser %q cannot parse %s", r.project.Config.Parser, path)
	}
	if err != nil {
		return nil, nil, err
	}

	var msgs messages.Messages
	if len(docs) > 0 {
		msgs = append(msgs, messages.Message{
			Level:   messages.LevelDebug,
			Message: fmt.Sprintf("Parsed %d document(s) in %dms", len(docs), time.Since(start).Milliseconds()),
		}.At(path, -1))
	}
	return docs, msgs, nil
}

// ErrorMessage turns a parse failure of file into an ERROR message, keeping
// the error type and line of parser errors.
func ErrorMessage(file string, err error) messages.Message {
	if pe, ok := program.AsParserError(err); ok {
		typ := "ParserError"
		if program.IsInternal(err) {
			typ = "InternalError"
		}
		loc := pe.File
		if loc == "" {
			loc = file
		}
		return messages.Errorf("%s", pe.Message).WithType(typ).At(loc, pe.Line())
	}
	return messages.Errorf("%v", err).At(file, -1)
}
