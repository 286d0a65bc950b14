package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/actgraph"
	"github.com/aretw0/actgraph/internal/presentation/tui"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the node library",
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")

		md, err := tui.Catalogue(actgraph.New().Registry())
		if err != nil {
			return err
		}
		out, err := tui.NewRenderer(!plain && tui.IsTerminal(os.Stdout))(md)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nodesCmd)
	nodesCmd.Flags().Bool("plain", false, "Print raw markdown")
}
