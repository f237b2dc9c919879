package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnana997/codeconnect/pkg/connect"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "codeconnect %s\n", connect.Version)
		},
	}
}
