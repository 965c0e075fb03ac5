package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/bookflow/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP/WebSocket server",
	Long: `Starts the Bookflow engine as a server exposing POST /v1/turn, the /v1/ws
WebSocket, session inspection, the turn graph and Prometheus metrics.
When nats.url is configured the engine also answers requests on the NATS turn subject.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.RunServe(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
}
