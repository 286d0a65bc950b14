package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/actgraph/internal/cli"
	"github.com/aretw0/actgraph/internal/presentation/tui"
)

var opts cli.Options

var rootCmd = &cobra.Command{
	Use:   "actgraph",
	Short: "actgraph compiles activation graphs to Go",
	Long: `actgraph turns a graph of nodes wired port to port into straight-line Go code,
then builds and runs it as a plugin. Graphs can also be interpreted directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		if tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(cmd.OutOrStdout())
		}
		_ = cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&opts.Debug, "debug", false, "Write debug logs to stderr")
	pf.StringVar(&opts.ConfigPath, "config", "actgraph.yaml", "Toolchain configuration file")
	pf.StringVar(&opts.Go, "go", "", "Go command used to build plugins")
	pf.BoolVar(&opts.Keep, "keep", false, "Keep the scratch directory of each build")
	pf.StringVar(&opts.RedisAddr, "redis", "", "Redis address of a shared artifact cache")
	pf.IntVar(&opts.RedisDB, "redis-db", 0, "Redis database of the artifact cache")
}

// withStack runs fn with a compiler configured from the global flags.
func withStack(fn func(*cli.Stack) error) error {
	s, err := cli.NewStack(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			s.Logger.Warn("failed to close", "err", err)
		}
	}()
	return fn(s)
}
