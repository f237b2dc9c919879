package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gnana997/codeconnect/pkg/indexer"
	"github.com/gnana997/codeconnect/pkg/project"
)

// openIndex loads the project in dir, indexes it and returns the scanner.
// release closes the runner and the index.
func openIndex(ctx context.Context, g *globalOptions, dir string, maxFiles int, logger *slog.Logger) (scanner *indexer.WorkspaceScanner, release func(), err error) {
	runner, err := g.newRunner(dir, project.Options{ContinueOnError: true, Verbose: g.verbose()}, logger)
	if err != nil {
		return nil, nil, err
	}

	cfg := indexer.DefaultDocumentIndexConfig()
	if maxFiles > 0 {
		cfg.MaxCachedFiles = maxFiles
	}
	cfg.Debug = g.verbose()
	index := indexer.NewDocumentIndex(cfg, logger)

	release = func() {
		index.Close()
		runner.Close()
	}

	scanner, err = indexer.NewWorkspaceScanner(runner, index, logger)
	if err != nil {
		release()
		return nil, nil, err
	}

	stats, err := scanner.ScanWorkspace(ctx, nil)
	if err != nil {
		release()
		return nil, nil, err
	}
	logger.Info("project indexed",
		"files", stats.FilesDiscovered,
		"failed", stats.FilesFailed,
		"docs", stats.DocumentsFound,
		"ms", stats.TotalTimeMs)
	return scanner, release, nil
}

func newWatchCmd(g *globalOptions) *cobra.Command {
	var debounce time.Duration
	var maxFiles int

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Parse a project and re-parse Code Connect files as they change",
		Long: `Index the project in dir, then watch it and re-parse each Code Connect file
when it is saved. A line is printed for every file whose documents changed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := g.logger(cmd)

			scanner, closeIndex, err := openIndex(ctx, g, dirArg(args), maxFiles, logger)
			if err != nil {
				return err
			}
			defer closeIndex()

			out := cmd.OutOrStdout()
			root := scanner.Runner().Project().Dir
			opts := indexer.DefaultWatchOptions()
			opts.DebounceMs = int(debounce.Milliseconds())
			opts.OnUpdate = func(fd *indexer.FileDocuments) {
				printUpdate(ctx, out, root, fd, logger)
			}
			opts.OnRemove = func(path string) {
				fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("removed"), relTo(root, path))
			}

			watcher, err := indexer.NewFileWatcher(scanner, opts, logger)
			if err != nil {
				return err
			}
			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Stop()

			stats := scanner.Index().GetStats()
			fmt.Fprintf(out, "%s %d document(s) in %d file(s), watching %s\n",
				okStyle.Render("●"), stats.TotalDocuments, stats.CachedFiles, root)

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "Delay before a changed file is re-parsed")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "Maximum number of files kept in the index (default 5000)")
	return cmd
}

func printUpdate(ctx context.Context, w io.Writer, root string, fd *indexer.FileDocuments, logger *slog.Logger) {
	rel := relTo(root, fd.FilePath)
	if fd.HasErrors() {
		fmt.Fprintf(w, "%s %s\n", errStyle.Render("error"), rel)
		fd.Messages.Log(ctx, logger)
		return
	}
	fmt.Fprintf(w, "%s %s %s\n", okStyle.Render("parsed"), rel,
		mutedStyle.Render(fmt.Sprintf("(%d document(s))", len(fd.Docs))))
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
