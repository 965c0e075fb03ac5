package runner

import (
	"context"

	"github.com/aretw0/bookflow/pkg/domain"
)

// TurnHandler processes one user message and returns the assistant reply.
// The root bookflow.Engine satisfies it.
type TurnHandler interface {
	HandleTurn(ctx context.Context, userID, text string) (domain.Message, error)
}

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI) and JSON (structured) modes.
type IOHandler interface {
	// Input reads the next user message.
	Input(ctx context.Context) (string, error)

	// Output presents an assistant reply.
	Output(ctx context.Context, msg domain.Message) error

	// SystemOutput presents a meta-message (errors, status) distinct from replies.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms reply text before it is printed.
// This allows markdown-to-ANSI rendering without coupling this package to a TUI.
type ContentRenderer func(string) (string, error)
