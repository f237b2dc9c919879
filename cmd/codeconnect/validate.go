package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gnana997/codeconnect/pkg/project"
	"github.com/gnana997/codeconnect/pkg/validation"
)

// tokenEnv names the environment variable holding the Figma access token.
const tokenEnv = "FIGMA_ACCESS_TOKEN"

var errValidationFailed = errors.New("validation failed")

// figmaToken returns the access token from flag, the environment or a .env
// file in dir, in that order. An empty result means no token is configured.
func figmaToken(flag, dir string) string {
	if flag != "" {
		return flag
	}
	if token := os.Getenv(tokenEnv); token != "" {
		return token
	}
	env, err := godotenv.Read(filepath.Join(dir, ".env"))
	if err != nil {
		return ""
	}
	return env[tokenEnv]
}

func newValidateCmd(g *globalOptions) *cobra.Command {
	var api figmaFlags

	cmd := &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check the documents of a project against the Figma file",
		Long: `Parse the project and validate every document against the Figma REST API:
the node must exist and be a component or component set, every referenced
Figma property must be defined, and variant restrictions must name real
variant values.

The access token is read from --token, the FIGMA_ACCESS_TOKEN environment
variable or a .env file in the project directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := g.logger(cmd)
			dir := dirArg(args)

			client, err := api.client(cmd, g, dir)
			if err != nil {
				return err
			}

			runner, err := g.newRunner(dir, project.Options{ContinueOnError: true, Verbose: g.verbose()}, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			resp, err := runner.Run(ctx)
			if err != nil {
				return err
			}
			resp.Messages.Log(ctx, logger)

			failures, err := validation.ValidateDocs(ctx, client, resp.Docs, logger)
			if err != nil {
				return fmt.Errorf("failed to fetch Figma nodes: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, f := range failures {
				fmt.Fprintf(out, "%s %s\n", errStyle.Render("✗"), f.Error())
			}
			if len(failures) > 0 || resp.Messages.HasErrors() {
				fmt.Fprintf(out, "%s %d of %d document(s) failed\n",
					errStyle.Render("✗"), len(failures), len(resp.Docs))
				return errValidationFailed
			}
			fmt.Fprintf(out, "%s %d document(s) valid\n", okStyle.Render("✓"), len(resp.Docs))
			return nil
		},
	}

	api.register(cmd)
	return cmd
}
