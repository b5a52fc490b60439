package prompt

import (
	"context"
	"io"
	"sync"
)

// Scripted replays a fixed sequence of lines. It records every prompt it was
// asked to show and returns io.EOF once the script is exhausted.
type Scripted struct {
	mu      sync.Mutex
	lines   []string
	prompts []string
}

// NewScripted creates a Scripted reader answering with lines in order.
func NewScripted(lines ...string) *Scripted {
	return &Scripted{lines: lines}
}

// ReadLine returns the next scripted line.
func (s *Scripted) ReadLine(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

// Close is a no-op.
func (s *Scripted) Close() error { return nil }

// Prompts returns the prompts shown so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Remaining returns the number of unread lines.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}
