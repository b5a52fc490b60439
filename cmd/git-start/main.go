// Command git-start picks a Pivotal Tracker story, creates a branch for it
// and marks it started. Installed on PATH it runs as "git start".
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/steveyegge/git-start/internal/prompt"
	"github.com/steveyegge/git-start/internal/telemetry"
)

const (
	exitCodeError    = 1
	exitCodeCanceled = 130
)

// notifyContext is overridden in tests to avoid sending real signals.
var notifyContext = signal.NotifyContext

// shutdownTelemetry flushes telemetry once the command has finished.
var shutdownTelemetry = telemetry.Shutdown

// app holds the process streams so commands can be run in tests.
type app struct {
	stdout io.Writer
	stderr io.Writer
	// openInput returns the reader used for interactive prompts.
	openInput func() prompt.LineReadCloser
}

func newApp() *app {
	return &app{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		openInput: func() prompt.LineReadCloser { return prompt.New(os.Stdin, os.Stdout) },
	}
}

func main() {
	os.Exit(run(newApp(), os.Args[1:]))
}

// run executes the command line and returns the process exit code.
func run(a *app, args []string) int {
	ctx, stop := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// Flush even when the run was interrupted or failed.
	defer shutdownTelemetry(context.WithoutCancel(ctx))

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case isCanceled(err):
		fmt.Fprintln(a.stderr)
		return exitCodeCanceled
	default:
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitCodeError
	}
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
