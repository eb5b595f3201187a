// Package appshell owns process-level concerns: signal-driven cancellation
// and exit-code normalization. Everything else lives below it so the apps
// stay testable with plain io.Writers.
package appshell

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// ExitCancelled is the conventional exit status for an interrupted run.
const ExitCancelled = 130

// Main wires OS signals into a cancellable context and runs the app.
// SIGINT/SIGTERM stop admission of new units; the app drains in-flight
// work under its grace policy before returning.
func Main(run func(context.Context, []string, io.Writer, io.Writer) int) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	argv := os.Args[1:]
	if len(argv) == 0 {
		argv = []string{"-h"}
	}

	code := run(ctx, argv, os.Stdout, os.Stderr)
	if ctx.Err() != nil && code == 0 {
		code = ExitCancelled
	}

	stop()
	os.Exit(code)
}
