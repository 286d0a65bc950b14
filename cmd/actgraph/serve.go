package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpAdapter "github.com/aretw0/actgraph/internal/adapters/http"
	"github.com/aretw0/actgraph/internal/cli"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the compiler over HTTP: the node library, compilation to source, Mermaid
diagrams and interpretation. Prometheus metrics are exposed on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")

		return withStack(func(s *cli.Stack) error {
			srv := &http.Server{
				Addr:              ":" + port,
				Handler:           httpAdapter.NewHandler(s.Compiler, s.Registry, s.Logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Starting actgraph server on %s\n", srv.Addr)
				serverErrors <- srv.ListenAndServe()
			}()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(shutdown)

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case sig := <-shutdown:
				fmt.Fprintf(cmd.OutOrStdout(), "\nStart shutdown... Signal: %v\n", sig)

				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					s.Logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
					if err := srv.Close(); err != nil {
						return fmt.Errorf("error killing server: %w", err)
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), "actgraph server stopped gracefully")
				return nil
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
