// Package debug controls diagnostic output. Debug output is enabled by the
// GIT_START_DEBUG environment variable or --verbose; --quiet suppresses
// normal informational output.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var (
	enabled     = os.Getenv("GIT_START_DEBUG") != ""
	verboseMode = false
	quietMode   = false
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	return quietMode
}

func Logf(format string, args ...interface{}) {
	if Enabled() {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Logger returns a structured logger writing debug records to stderr when
// debug output is enabled, and discarding everything otherwise.
func Logger() *slog.Logger {
	if !Enabled() {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Normal returns w, or io.Discard in quiet mode. Use it for informational
// output such as progress messages.
func Normal(w io.Writer) io.Writer {
	if quietMode {
		return io.Discard
	}
	return w
}
