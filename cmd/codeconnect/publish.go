package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/figma"
	"github.com/gnana997/codeconnect/pkg/project"
	"github.com/gnana997/codeconnect/pkg/publish"
	"github.com/gnana997/codeconnect/pkg/validation"
)

// figmaFlags are the flags of commands that talk to the REST API.
type figmaFlags struct {
	token  string
	apiURL string
}

func (f *figmaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.token, "token", "t", "", "Figma access token")
	cmd.Flags().StringVar(&f.apiURL, "api-url", "", "Figma API root (default: "+figma.DefaultBaseURL+")")
}

func (f *figmaFlags) client(cmd *cobra.Command, g *globalOptions, dir string) (*figma.HTTPClient, error) {
	accessToken := figmaToken(f.token, dir)
	if accessToken == "" {
		return nil, fmt.Errorf("no Figma access token: pass --token or set %s", tokenEnv)
	}
	opts := []figma.Option{figma.WithLogger(g.logger(cmd))}
	if f.apiURL != "" {
		opts = append(opts, figma.WithBaseURL(f.apiURL))
	}
	return figma.NewHTTPClient(accessToken, opts...), nil
}

// projectDocs parses the project in dir. Parse errors are logged and fail
// the command.
func projectDocs(cmd *cobra.Command, g *globalOptions, dir string) ([]*connect.Document, error) {
	ctx := cmd.Context()
	logger := g.logger(cmd)

	runner, err := g.newRunner(dir, project.Options{ContinueOnError: true, Verbose: g.verbose()}, logger)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	resp, err := runner.Run(ctx)
	if err != nil {
		return nil, err
	}
	resp.Messages.Log(ctx, logger)
	if resp.Messages.HasErrors() {
		return nil, errParseFailed
	}
	return resp.Docs, nil
}

func newPublishCmd(g *globalOptions) *cobra.Command {
	var api figmaFlags
	var batchSize int
	var dryRun, skipValidation bool

	cmd := &cobra.Command{
		Use:   "publish [dir]",
		Short: "Upload the documents of a project to Figma",
		Long: `Parse the project, validate its documents against the Figma file and upload
them to Figma.

Requests are limited to 5MB. Use --batch-size to split the upload into
requests of that many Figma nodes each; all documents of a node are always
sent together.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := g.logger(cmd)
			dir := dirArg(args)
			if batchSize < 0 {
				return fmt.Errorf("--batch-size must be a positive number")
			}

			client, err := api.client(cmd, g, dir)
			if err != nil {
				return err
			}
			docs, err := projectDocs(cmd, g, dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("No Code Connect documents to publish"))
				return nil
			}

			if !skipValidation {
				failures, err := validation.ValidateDocs(ctx, client, docs, logger)
				if err != nil {
					return fmt.Errorf("failed to fetch Figma nodes: %w", err)
				}
				if len(failures) > 0 {
					for _, f := range failures {
						fmt.Fprintf(out, "%s %s\n", errStyle.Render("✗"), f.Error())
					}
					return errValidationFailed
				}
			}

			p := publish.New(client, publish.Options{BatchSize: batchSize, DryRun: dryRun}, logger)
			if _, err := p.Upload(ctx, docs); err != nil {
				var tooLarge *publish.TooLargeError
				if errors.As(err, &tooLarge) {
					return fmt.Errorf("failed to upload to Figma: %w; reduce the size of each request with --batch-size", err)
				}
				return err
			}

			verb := "Successfully uploaded to Figma"
			if dryRun {
				verb = "Dry run, would upload to Figma"
			}
			for _, r := range publish.Report(docs) {
				fmt.Fprintf(out, "%s %s, for %s:\n", okStyle.Render("✓"), verb, titleStyle.Render(r.Label))
				for _, d := range r.Docs {
					fmt.Fprintf(out, "  -> %s\n", d)
				}
			}
			return nil
		},
	}

	api.register(cmd)
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Number of Figma nodes per upload request (default: one request)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Check the upload without sending it")
	cmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "Upload without validating against the Figma file")
	return cmd
}

func newUnpublishCmd(g *globalOptions) *cobra.Command {
	var api figmaFlags
	var node, label string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "unpublish [dir]",
		Short: "Remove the published documents of a project from Figma",
		Long: `Remove the documents published for every Figma node and label of the project.

With --node only that node is unpublished, for the label given by --label.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := dirArg(args)

			var docs []*connect.Document
			if node != "" {
				if label == "" {
					return fmt.Errorf("--label is required with --node")
				}
				if _, err := validation.ParseFigmaNode(node); err != nil {
					return err
				}
				docs = []*connect.Document{{FigmaNode: node, Label: label}}
			}

			client, err := api.client(cmd, g, dir)
			if err != nil {
				return err
			}
			if docs == nil {
				if docs, err = projectDocs(cmd, g, dir); err != nil {
					return err
				}
			}

			p := publish.New(client, publish.Options{DryRun: dryRun}, g.logger(cmd))
			deleted, err := p.Delete(cmd.Context(), docs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(deleted) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("No Code Connect documents to unpublish"))
				return nil
			}
			verb := "Successfully deleted"
			if dryRun {
				verb = "Dry run, would delete"
			}
			fmt.Fprintf(out, "%s %s:\n", okStyle.Render("✓"), verb)
			for _, n := range deleted {
				fmt.Fprintf(out, "  -> %s (%s)\n", n.FigmaNode, n.Label)
			}
			return nil
		},
	}

	api.register(cmd)
	cmd.Flags().StringVar(&node, "node", "", "Unpublish only this Figma node URL")
	cmd.Flags().StringVar(&label, "label", "", "Label of the documents to unpublish with --node, e.g. React")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be unpublished without sending it")
	return cmd
}
