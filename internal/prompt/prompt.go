// Package prompt reads single lines of operator input.
//
// The start workflow only ever needs "print a prompt, read one line". The
// LineReader interface captures that so the selection loop can be driven by
// a terminal, a pipe, or a scripted sequence in tests.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// LineReader prints prompt and blocks until one line of input is available.
// The returned line has its trailing newline removed. At end of input it
// returns io.EOF; when ctx is cancelled it returns ctx.Err().
type LineReader interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
}

// New returns a liner-backed reader when in and out are both terminals and a
// plain buffered reader otherwise. Callers must Close the result.
func New(in *os.File, out *os.File) LineReadCloser {
	if term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd())) {
		return NewTerminal()
	}
	return NewReader(in, out)
}

// LineReadCloser is a LineReader holding terminal state that must be released.
type LineReadCloser interface {
	LineReader
	io.Closer
}

// Reader reads lines from any io.Reader, echoing prompts to out.
type Reader struct {
	r   *bufio.Reader
	out io.Writer
	src io.Reader
}

// NewReader creates a Reader over in. Prompts are written to out.
func NewReader(in io.Reader, out io.Writer) *Reader {
	return &Reader{r: bufio.NewReader(in), out: out, src: in}
}

// ReadLine returns a line from the reader or ctx.Err() if canceled.
// If the underlying reader is an io.Closer it is closed on cancellation to
// unblock the pending read.
func (r *Reader) ReadLine(ctx context.Context, prompt string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if prompt != "" {
		if _, err := fmt.Fprint(r.out, prompt); err != nil {
			return "", fmt.Errorf("write prompt: %w", err)
		}
	}

	type result struct {
		line string
		err  error
	}

	resultCh := make(chan result, 1)
	go func() {
		line, err := r.r.ReadString('\n')
		resultCh <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		if closer, ok := r.src.(io.Closer); ok && r.src != os.Stdin {
			_ = closer.Close()
		}
		return "", ctx.Err()
	case res := <-resultCh:
		line := strings.TrimRight(res.line, "\r\n")
		// A final line without a newline still counts as input.
		if errors.Is(res.err, io.EOF) && line != "" {
			return line, nil
		}
		return line, res.err
	}
}

// Close is a no-op; the Reader does not own its input.
func (r *Reader) Close() error { return nil }

// Terminal reads lines with line editing through liner.
type Terminal struct {
	state *liner.State
}

// NewTerminal switches the terminal to liner's raw mode.
func NewTerminal() *Terminal {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &Terminal{state: state}
}

// ReadLine prompts on the terminal. Ctrl-C maps to context.Canceled and
// Ctrl-D to io.EOF.
func (t *Terminal) ReadLine(ctx context.Context, prompt string) (string, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	line, err := t.state.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", context.Canceled
		}
		return "", err
	}
	if line != "" {
		t.state.AppendHistory(line)
	}
	return line, nil
}

// Close restores the terminal mode.
func (t *Terminal) Close() error {
	return t.state.Close()
}
