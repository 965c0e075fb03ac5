package runner

import (
	"log/slog"
)

// DefaultUserID identifies the local user of interactive sessions.
const DefaultUserID = "local"

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithUserID sets the user whose session the runner drives.
func WithUserID(id string) Option {
	return func(r *Runner) {
		r.UserID = id
	}
}

// WithGreeting prints msg as a system line before the first read.
func WithGreeting(msg string) Option {
	return func(r *Runner) {
		r.Greeting = msg
	}
}

// WithExitCommands replaces the commands that end the loop.
func WithExitCommands(cmds ...string) Option {
	return func(r *Runner) {
		r.ExitCommands = cmds
	}
}
