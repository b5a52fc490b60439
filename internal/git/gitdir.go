// Package git runs the git operations the start workflow needs: creating
// branches, reading and writing config, and installing hooks.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Repo is a git working tree. Commands run with Dir as working directory;
// hook files are written through Fs.
type Repo struct {
	Dir string
	Fs  afero.Fs

	// HooksPath overrides the hooks directory reported by git.
	HooksPath string
}

// NewRepo returns a Repo rooted at dir using the OS filesystem.
// An empty dir means the process working directory.
func NewRepo(dir string) *Repo {
	return &Repo{Dir: dir, Fs: afero.NewOsFs()}
}

// run executes git with args and returns trimmed stdout.
func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", args[0], err)
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// exitCode returns the exit status carried by err, or -1.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Root returns the top-level directory of the working tree.
func (r *Repo) Root(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return out, nil
}

// HooksDir returns the directory git runs hooks from. It honors
// core.hooksPath and is shared by all worktrees of a repository.
func (r *Repo) HooksDir(ctx context.Context) (string, error) {
	if r.HooksPath != "" {
		return r.HooksPath, nil
	}
	out, err := r.run(ctx, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return r.abs(out), nil
}

// IsWorktree reports whether Dir is a linked worktree.
func (r *Repo) IsWorktree(ctx context.Context) bool {
	gitDir, err := r.run(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return false
	}
	commonDir, err := r.run(ctx, "rev-parse", "--git-common-dir")
	if err != nil {
		return false
	}
	return filepath.Clean(r.abs(gitDir)) != filepath.Clean(r.abs(commonDir))
}

func (r *Repo) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	base := r.Dir
	if base == "" {
		if wd, err := filepath.Abs("."); err == nil {
			base = wd
		}
	}
	return filepath.Join(base, p)
}
