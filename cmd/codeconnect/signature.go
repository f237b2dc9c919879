package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnana997/codeconnect/pkg/project"
)

type signatureProp struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional"`
}

func newSignatureCmd(g *globalOptions) *cobra.Command {
	var dir string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "signature <file> <component>",
		Short: "Print the flattened props signature of a component",
		Long: `Resolve the props type of a component declared or exported by file and print
its flattened signature: every prop, including those of extended interfaces
and intersected types, with optional props marked.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd)
			path, err := absFile(args[0])
			if err != nil {
				return err
			}
			runner, err := g.newRunner(dir, project.Options{}, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			sig, err := runner.Program().ExtractFlattenedSignature(path, args[1])
			if err != nil {
				return err
			}

			props := make([]signatureProp, len(sig))
			for i, p := range sig {
				props[i] = signatureProp{
					Name:     p.Name,
					Type:     strings.TrimPrefix(p.Type, "?"),
					Optional: strings.HasPrefix(p.Type, "?"),
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(props, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintln(out, titleStyle.Render(args[1]))
			for _, p := range props {
				name := p.Name
				if p.Optional {
					name += "?"
				}
				fmt.Fprintf(out, "  %s %s\n", keyStyle.Width(0).Render(name+":"), p.Type)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Project directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the signature as JSON")
	return cmd
}
