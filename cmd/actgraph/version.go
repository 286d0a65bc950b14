package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/actgraph"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of actgraph",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "actgraph version %s\n", strings.TrimSpace(actgraph.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
