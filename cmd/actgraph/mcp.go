package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	mcpAdapter "github.com/aretw0/actgraph/internal/adapters/mcp"
	"github.com/aretw0/actgraph/internal/cli"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Serves the compiler to MCP clients as the tools list_nodes, compile, graph and
interpret. Like serve, it never builds or loads plugins.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		return withStack(func(s *cli.Stack) error {
			srv := mcpAdapter.NewServer(s.Compiler, s.Logger)
			switch transport {
			case "stdio":
				// Logs go to stderr so they never corrupt JSON-RPC on stdout.
				s.Logger.Info("starting MCP server (stdio)")
				return srv.ServeStdio()
			case "sse":
				ctx := cli.NewSignalContext(context.Background())
				defer ctx.Cancel()
				addr := fmt.Sprintf(":%d", port)
				return srv.ServeSSE(ctx, addr, fmt.Sprintf("http://localhost:%d", port))
			default:
				return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
