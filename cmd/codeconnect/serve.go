package main

import (
	"github.com/spf13/cobra"

	"github.com/gnana997/codeconnect/pkg/figma"
	"github.com/gnana997/codeconnect/pkg/indexer"
	mcpserver "github.com/gnana997/codeconnect/pkg/mcp"
	"github.com/gnana997/codeconnect/pkg/mcplog"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var callLogPath, token string
	var watch bool
	var maxFiles int

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve the document index of a project over MCP (stdio)",
		Long: `Index the project in dir and serve it to MCP clients over stdin/stdout.

Tools: parse_file, list_documents, get_document, component_signature,
validate_document and index_status. validate_document needs a Figma access
token (--token, FIGMA_ACCESS_TOKEN or a .env file in the project).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := g.logger(cmd)
			dir := dirArg(args)

			scanner, closeIndex, err := openIndex(ctx, g, dir, maxFiles, logger)
			if err != nil {
				return err
			}
			defer closeIndex()

			if watch {
				watcher, err := indexer.NewFileWatcher(scanner, indexer.DefaultWatchOptions(), logger)
				if err != nil {
					return err
				}
				if err := watcher.Start(); err != nil {
					return err
				}
				defer watcher.Stop()
			}

			cfg := mcpserver.Config{Logger: logger}
			if accessToken := figmaToken(token, dir); accessToken != "" {
				cfg.Figma = figma.NewHTTPClient(accessToken, figma.WithLogger(logger))
			} else {
				logger.Info("no Figma access token, validate_document is disabled")
			}
			if callLogPath != "" {
				callLog, err := mcplog.NewLogger(callLogPath)
				if err != nil {
					return err
				}
				defer callLog.Close()
				cfg.CallLog = callLog
			}

			srv := mcpserver.NewServer(scanner, cfg)
			logger.Info("serving MCP on stdio", "project", scanner.Runner().Project().Dir)
			return srv.ServeStdio()
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", true, "Re-parse files as they change")
	cmd.Flags().StringVar(&callLogPath, "call-log", "", "Append every tool call to this JSONL file")
	cmd.Flags().StringVarP(&token, "token", "t", "", "Figma access token for validate_document")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "Maximum number of files kept in the index (default 5000)")
	return cmd
}
