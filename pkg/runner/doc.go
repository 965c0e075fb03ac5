/*
Package runner implements the interactive chat loop for the Bookflow engine.

It is the bridge between a TurnHandler (usually the root bookflow.Engine) and a
terminal or pipe. Input and output go through pluggable IOHandlers so the same
loop serves humans and scripts.

# Key Components

  - Runner: reads messages, runs turns and prints replies until EOF or /salir.
  - TextHandler: line-oriented IO with optional markdown rendering.
  - JSONHandler: JSON Lines IO for headless use.
  - SanitizeInput: size, encoding and control character checks on every message.

# Usage

	r := runner.NewRunner(
		runner.WithUserID("ana"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	if err := r.Run(ctx, engine); err != nil {
		log.Fatal(err)
	}
*/
package runner
