package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/actgraph/internal/cli"
	"github.com/aretw0/actgraph/internal/presentation/graph"
	"github.com/aretw0/actgraph/pkg/codegen"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <graph>",
	Short: "Export the graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the nodes, their edges and entry inputs.
When the graph compiles, nodes driven from a loop body are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStack(func(s *cli.Stack) error {
			prog, err := s.Compiler.Load(args[0])
			if err != nil {
				return err
			}
			var overlay *graph.Overlay
			if unit, err := s.Compiler.Compile(prog, codegen.Options{}); err == nil {
				overlay = &graph.Overlay{Procedures: unit.Procedures}
			} else {
				s.Logger.Debug("drawing without overlay", "err", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(prog.Graph, prog.Table, overlay))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
