package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/actgraph/internal/cli"
	"github.com/aretw0/actgraph/pkg/codegen"
)

var compileCmd = &cobra.Command{
	Use:   "compile <graph>",
	Short: "Emit the Go source of a graph",
	Long: `Type-checks the graph and prints the generated Go source. With --module the
source carries the exported symbols a host needs to load it as a plugin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		module, _ := cmd.Flags().GetBool("module")
		pkg, _ := cmd.Flags().GetString("package")
		out, _ := cmd.Flags().GetString("output")

		return withStack(func(s *cli.Stack) error {
			prog, err := s.Compiler.Load(args[0])
			if err != nil {
				return err
			}
			unit, err := s.Compiler.Compile(prog, codegen.Options{Package: pkg, Module: module})
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(unit.Source)
				return err
			}
			if err := os.WriteFile(out, unit.Source, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			s.Logger.Info("wrote generated source", "path", out, "bytes", len(unit.Source))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringP("output", "o", "", "Write the source to a file instead of stdout")
	compileCmd.Flags().Bool("module", false, "Emit a loadable module")
	compileCmd.Flags().String("package", "", "Package name of the generated source")
}
