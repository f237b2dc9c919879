package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/project"
	"github.com/gnana997/codeconnect/pkg/util"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "codeconnect",
		Short: "Compile Figma Code Connect files into Code Connect documents",
		Long: `codeconnect reads the figma.connect calls of a React or HTML project and
compiles each one into a Code Connect document: the Figma node it belongs to,
the executable example template and the source it links back to.

Project settings are read from figma.config.json (or figma.config.yaml) in the
project directory. Logs go to stderr; documents go to stdout.`,
		Version:      connect.Version,
		SilenceUsage: true,
		// packages given a nil logger fall back to slog.Default()
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			util.SetDefault(g.logger(cmd))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "Path to the Code Connect config file (default: figma.config.json in the project)")
	flags.StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&g.logFormat, "log-format", "text", "Log format: text or json")

	cmd.AddCommand(
		newParseCmd(g),
		newPrintCmd(g),
		newSignatureCmd(g),
		newValidateCmd(g),
		newPublishCmd(g),
		newUnpublishCmd(g),
		newCreateCmd(g),
		newWatchCmd(g),
		newServeCmd(g),
		newSchemaCmd(),
		newSetupCmd(),
		newVersionCmd(),
	)
	return cmd
}

// logger builds the command logger. It always writes to stderr so stdout
// stays free for documents and the MCP transport.
func (g *globalOptions) logger(cmd *cobra.Command) *slog.Logger {
	cfg := util.DefaultLoggerConfig()
	cfg.Level = util.ParseLogLevel(g.logLevel)
	cfg.Format = util.LogFormat(g.logFormat)
	cfg.Output = cmd.ErrOrStderr()
	return util.NewLogger(cfg)
}

func (g *globalOptions) verbose() bool {
	return util.ParseLogLevel(g.logLevel) == util.LevelDebug
}

// newRunner loads the project in dir and returns a runner for it. The
// caller closes the runner.
func (g *globalOptions) newRunner(dir string, opts project.Options, logger *slog.Logger) (*project.Runner, error) {
	p, err := project.Load(dir, g.configPath, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("project loaded",
		"dir", p.Dir,
		"parser", p.Config.Parser,
		"files", len(p.Files))
	return project.NewRunner(p, opts, logger)
}

// dirArg returns the optional directory argument of a command.
func dirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// absFile resolves a file argument and checks that it exists.
func absFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return abs, nil
}
