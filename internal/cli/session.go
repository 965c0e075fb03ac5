package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/bookflow"
	"github.com/aretw0/bookflow/internal/config"
	"github.com/aretw0/bookflow/internal/presentation/tui"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/runner"
)

const chatGreeting = "Hola, soy el asistente de la librería. Puedo buscar libros, gestionar tu carrito y tus pedidos. Escribe /salir para terminar."

// ChatOptions configures an interactive chat session.
type ChatOptions struct {
	Config config.Config
	UserID string
	JSON   bool
	Debug  bool
	Fresh  bool

	In  io.Reader
	Out io.Writer
}

// RunChat runs a local conversation against a fully wired engine until the
// input ends, the user types an exit command or ctx is cancelled.
func RunChat(ctx context.Context, opts ChatOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.UserID == "" {
		opts.UserID = runner.DefaultUserID
	}

	logger, err := createLogger(opts.Config.Log, opts.Debug)
	if err != nil {
		return err
	}

	res, err := createEngine(ctx, opts.Config, logger)
	if err != nil {
		return err
	}
	defer res.Close() //nolint:errcheck

	if opts.Fresh {
		if err := res.Engine.ResetSession(ctx, opts.UserID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to reset session: %w", err)
		}
	}

	runnerOpts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithUserID(opts.UserID),
	}

	if opts.JSON {
		runnerOpts = append(runnerOpts, runner.WithInputHandler(runner.NewJSONHandler(opts.In, opts.Out)))
	} else {
		var handlerOpts []runner.TextHandlerOption
		if isTerminal(opts.Out) {
			tui.PrintBanner(opts.Out, bookflow.Version)
			render, err := tui.NewRenderer(0)
			if err != nil {
				logger.Warn("Markdown rendering disabled", "err", err)
			} else {
				handlerOpts = append(handlerOpts, runner.WithTextHandlerRenderer(render))
			}
		}
		runnerOpts = append(runnerOpts,
			runner.WithInputHandler(runner.NewTextHandler(opts.In, opts.Out, handlerOpts...)),
			runner.WithGreeting(chatGreeting),
		)
	}

	err = runner.NewRunner(runnerOpts...).Run(ctx, res.Engine)
	if !opts.JSON && ctx.Err() != nil {
		fmt.Fprintln(opts.Out)
		printSystemMessage(opts.Out, "Conversación interrumpida.")
	}
	return handleExecutionError(err)
}
