package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/project"
)

type printOptions struct {
	dir     string
	style   string
	noColor bool
}

func newPrintCmd(g *globalOptions) *cobra.Command {
	opts := &printOptions{}

	cmd := &cobra.Command{
		Use:   "print <file>",
		Short: "Print the documents of one Code Connect file in a readable form",
		Long: `Parse a single Code Connect file and print each document: its Figma node,
component, source link, props and the highlighted example template.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrint(cmd, g, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", ".", "Project directory")
	cmd.Flags().StringVar(&opts.style, "style", "monokai", "Syntax highlighting style")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Print templates without highlighting")
	return cmd
}

func runPrint(cmd *cobra.Command, g *globalOptions, opts *printOptions, file string) error {
	ctx := cmd.Context()
	logger := g.logger(cmd)

	path, err := absFile(file)
	if err != nil {
		return err
	}
	runner, err := g.newRunner(opts.dir, project.Options{Verbose: g.verbose()}, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	docs, msgs, err := runner.ParseFile(ctx, path)
	if err != nil {
		return err
	}
	msgs.Log(ctx, logger)

	out := cmd.OutOrStdout()
	if len(docs) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No Code Connect documents in "+file))
		return nil
	}

	style := opts.style
	if opts.noColor {
		style = ""
	}
	for i, doc := range docs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := printDocument(out, doc, style); err != nil {
			return err
		}
	}
	return nil
}

func printDocument(w io.Writer, doc *connect.Document, style string) error {
	title := doc.Component
	if title == "" {
		title = "(no component)"
	}
	fmt.Fprintf(w, "%s  %s\n", titleStyle.Render(title), badgeStyle.Render("["+doc.Label+"]"))

	field(w, "node", doc.FigmaNode)
	source := doc.Source
	if source != "" && doc.SourceLocation.Line != connect.UnknownLine {
		source = fmt.Sprintf("%s:%d", source, doc.SourceLocation.Line+1)
	}
	field(w, "source", source)
	field(w, "language", doc.Language)
	if doc.Variant != nil && doc.Variant.Len() > 0 {
		variant, err := doc.Variant.MarshalJSON()
		if err != nil {
			return err
		}
		field(w, "variant", string(variant))
	}
	if props := doc.TemplateData.Props; props != nil && props.Len() > 0 {
		field(w, "props", strings.Join(props.Keys(), ", "))
	}
	for _, link := range doc.Links {
		field(w, "link", fmt.Sprintf("%s %s", link.Name, mutedStyle.Render(link.URL)))
	}
	if len(doc.TemplateData.Imports) > 0 {
		fmt.Fprintln(w, "  "+keyStyle.Render("imports"))
		for _, imp := range doc.TemplateData.Imports {
			fmt.Fprintln(w, "    "+imp)
		}
	}

	fmt.Fprintln(w, rule())
	if err := highlight(w, doc.Template, "javascript", style); err != nil {
		return fmt.Errorf("failed to highlight template: %w", err)
	}
	if !strings.HasSuffix(doc.Template, "\n") {
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, rule())
	return nil
}
