package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gnana997/codeconnect/pkg/figma"
	"github.com/gnana997/codeconnect/pkg/program"
	"github.com/gnana997/codeconnect/pkg/project"
	"github.com/gnana997/codeconnect/pkg/react"
	"github.com/gnana997/codeconnect/pkg/validation"
)

var errCreateFailed = errors.New("create failed")

type createOptions struct {
	dir           string
	componentFile string
	export        string
	outFile       string
	outDir        string
}

func newCreateCmd(g *globalOptions) *cobra.Command {
	var api figmaFlags
	opts := &createOptions{}

	cmd := &cobra.Command{
		Use:   "create <figma-node-url>",
		Short: "Generate a React Code Connect file for a Figma component",
		Long: `Fetch the Figma component at the given node URL and write a .figma.tsx file
connecting it to code.

With --component-file the file imports that component, props whose names
match a Figma property are mapped to it and the example renders the
component's required props. Without it every Figma property is suggested
as a prop and the component is named after the Figma layer.

Existing files are never overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, g, &api, opts, args[0])
		},
	}

	api.register(cmd)
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", ".", "Project directory")
	cmd.Flags().StringVar(&opts.componentFile, "component-file", "", "Source file of the code component")
	cmd.Flags().StringVar(&opts.export, "export", "", "Export of the component in --component-file (default: the default export, or the one named after the Figma layer)")
	cmd.Flags().StringVarP(&opts.outFile, "out", "o", "", "File to write (default: <component>.figma.tsx)")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "Directory to write to (default: next to --component-file, or the current directory)")
	return cmd
}

func runCreate(cmd *cobra.Command, g *globalOptions, api *figmaFlags, opts *createOptions, nodeURL string) error {
	ctx := cmd.Context()
	logger := g.logger(cmd)

	node, err := validation.ParseFigmaNode(nodeURL)
	if err != nil {
		return err
	}
	client, err := api.client(cmd, g, opts.dir)
	if err != nil {
		return err
	}
	nodes, err := client.Nodes(ctx, node.FileKey, []string{node.NodeID})
	if err != nil {
		return err
	}
	layer := layerOf(nodes[node.NodeID])
	if layer == nil {
		return fmt.Errorf("node %s not found in file %s", node.NodeID, node.FileKey)
	}
	if !layer.IsComponent() {
		return fmt.Errorf("node %s is a %s, not a component or component set", node.NodeID, layer.Type)
	}

	name := react.NormalizeComponentName(layer.Name)
	conn := react.Connection{Component: layer, URL: nodeURL}
	req := react.CreateRequest{
		Connections:    []react.Connection{conn},
		OutFile:        opts.outFile,
		OutDir:         opts.outDir,
		NormalizedName: name,
	}

	if opts.componentFile != "" {
		source, err := absFile(opts.componentFile)
		if err != nil {
			return err
		}
		runner, err := g.newRunner(opts.dir, project.Options{}, logger)
		if err != nil {
			return err
		}
		defer runner.Close()

		export, err := componentExport(runner.Program(), source, opts.export, name)
		if err != nil {
			return err
		}
		sig, err := runner.Program().ExtractFlattenedSignature(source, export)
		if err != nil {
			logger.Warn("could not read component props", "file", source, "export", export, "error", err)
		}

		req.SourceFile = source
		req.Connections[0].SourceExport = export
		if sig != nil {
			req.Connections[0].Signature = sig
			req.Connections[0].PropMapping = react.MapProps(sig, layer)
		}
	}

	resp, err := react.Create(req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, m := range resp.Messages {
		fmt.Fprintf(out, "%s %s\n", errStyle.Render("✗"), m.Message)
	}
	for _, f := range resp.CreatedFiles {
		path := f.FilePath
		if rel, err := filepath.Rel(".", path); err == nil {
			path = rel
		}
		fmt.Fprintf(out, "%s Created %s\n", okStyle.Render("✓"), path)
	}
	if resp.Messages.HasErrors() {
		return errCreateFailed
	}
	return nil
}

// componentExport picks the export of source to connect: the flag value,
// else the default export, else the export named after the Figma layer.
func componentExport(prog *program.Program, source, flag, layerName string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	file, err := prog.File(source)
	if err != nil {
		return "", err
	}
	if file.ExportedDeclaration("default") != nil {
		return "default", nil
	}
	if file.ExportedDeclaration(layerName) != nil {
		return layerName, nil
	}
	return "", fmt.Errorf("%s has no default export and no export named %s: pass --export", source, layerName)
}

func layerOf(n *figma.Node) *figma.Layer {
	if n == nil {
		return nil
	}
	return n.Document
}
