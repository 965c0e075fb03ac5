package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/bookflow/internal/logging"
)

// Runner drives a chat loop: read a message, run a turn, print the reply.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	Handler      IOHandler
	Logger       *slog.Logger
	UserID       string
	Greeting     string
	ExitCommands []string
}

// NewRunner creates a Runner reading stdin and writing stdout unless
// WithInputHandler says otherwise.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		UserID:       DefaultUserID,
		ExitCommands: []string{"/salir", "/exit", "/quit"},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	return r
}

// Run executes the loop until input ends, an exit command arrives or ctx is
// cancelled. A failed turn is reported to the user and the loop continues.
func (r *Runner) Run(ctx context.Context, turns TurnHandler) error {
	if r.Greeting != "" {
		if err := r.Handler.SystemOutput(ctx, r.Greeting); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}

	for {
		text, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				r.Logger.Debug("Runner stopped", "user_id", r.UserID, "reason", err)
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		if r.isExit(text) {
			return nil
		}

		reply, err := turns.HandleTurn(ctx, r.UserID, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.Logger.Warn("Turn failed", "user_id", r.UserID, "error", err)
			if oerr := r.Handler.SystemOutput(ctx, err.Error()); oerr != nil {
				return fmt.Errorf("output error: %w", oerr)
			}
			continue
		}

		if err := r.Handler.Output(ctx, reply); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		r.Logger.Debug("Turn rendered", "user_id", r.UserID, "turn", reply.Turn, "intent", reply.Intent)
	}
}

func (r *Runner) isExit(text string) bool {
	for _, cmd := range r.ExitCommands {
		if strings.EqualFold(strings.TrimSpace(text), cmd) {
			return true
		}
	}
	return false
}
