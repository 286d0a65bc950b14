package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/actgraph/internal/cli"
	"github.com/aretw0/actgraph/pkg/codegen"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph>",
	Short: "Check the graph for consistency",
	Long:  `Resolves every node and edge, infers the port types and checks that the graph has no activation cycle.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStack(func(s *cli.Stack) error {
			prog, err := s.Compiler.Load(args[0])
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			if _, err := s.Compiler.Compile(prog, codegen.Options{Module: true}); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Graph is valid! ✅")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
