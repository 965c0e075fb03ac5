package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/bookflow/internal/cli"
	"github.com/spf13/cobra"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bookstore assistant in the terminal",
	Long: `Starts an interactive conversation with the assistant using the configured
store and session backend. With --json, input and output are JSON Lines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		jsonMode, _ := cmd.Flags().GetBool("json")
		debug, _ := cmd.Flags().GetBool("debug")
		fresh, _ := cmd.Flags().GetBool("fresh")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return cli.RunChat(ctx, cli.ChatOptions{
			Config: cfg,
			UserID: userID,
			JSON:   jsonMode,
			Debug:  debug,
			Fresh:  fresh,
			In:     cmd.InOrStdin(),
			Out:    cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("user", "u", "local", "User id the conversation belongs to")
	chatCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	chatCmd.Flags().Bool("debug", false, "Write logs to stderr")
	chatCmd.Flags().Bool("fresh", false, "Discard any stored session for the user first")
}
