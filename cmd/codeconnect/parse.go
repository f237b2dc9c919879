package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/project"
)

type parseOptions struct {
	messages        bool
	continueOnError bool
	workers         int
	outFile         string
}

var errParseFailed = errors.New("parse finished with errors")

func newParseCmd(g *globalOptions) *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [dir]",
		Short: "Parse the Code Connect files of a project and print their documents",
		Long: `Parse every Code Connect file of the project in dir (default: the current
directory) and print the resulting documents as a JSON array.

With --messages the output is a {"docs": [...], "messages": [...]} payload and
files that fail to parse are reported as ERROR messages instead of aborting.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, g, opts, dirArg(args))
		},
	}

	cmd.Flags().BoolVarP(&opts.messages, "messages", "m", false, "Print documents and messages as one payload")
	cmd.Flags().BoolVar(&opts.continueOnError, "continue-on-error", false, "Report files that fail to parse and carry on")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Number of parse workers (default: number of CPUs)")
	cmd.Flags().StringVarP(&opts.outFile, "out", "o", "", "Write the output to a file instead of stdout")
	return cmd
}

func runParse(cmd *cobra.Command, g *globalOptions, opts *parseOptions, dir string) error {
	ctx := cmd.Context()
	logger := g.logger(cmd)

	runner, err := g.newRunner(dir, project.Options{
		ContinueOnError: opts.continueOnError || opts.messages,
		Workers:         opts.workers,
		Verbose:         g.verbose(),
	}, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	resp, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	var data []byte
	if opts.messages {
		data, err = resp.MarshalJSON()
	} else {
		resp.Messages.Log(ctx, logger)
		data, err = connect.Marshal(resp.Docs)
	}
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	if err := writeOutput(cmd.OutOrStdout(), opts.outFile, data); err != nil {
		return err
	}
	if !opts.messages && resp.Messages.HasErrors() {
		return errParseFailed
	}
	return nil
}

func writeOutput(stdout io.Writer, outFile string, data []byte) error {
	data = append(data, '\n')
	if outFile == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outFile, err)
	}
	return nil
}
