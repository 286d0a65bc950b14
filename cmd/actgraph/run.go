package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/actgraph/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run <graph>",
	Short: "Build and run a graph",
	Long: `Compiles the graph, builds it with the go toolchain, loads the plugin and runs it
once with the input values of the document. With --interp the graph is
interpreted instead and no toolchain is needed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interp, _ := cmd.Flags().GetBool("interp")

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		return withStack(func(s *cli.Stack) error {
			prog, err := s.Compiler.Load(args[0])
			if err != nil {
				return err
			}
			if interp {
				err = s.Compiler.Interpret(sc, prog, cmd.OutOrStdout())
			} else {
				err = s.Compiler.Run(sc, prog, cmd.OutOrStdout())
			}
			if sig := sc.Signal(); sig != nil {
				s.Logger.Info("interrupted", "signal", sig.String())
			}
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("interp", false, "Interpret the graph instead of compiling it")
}
