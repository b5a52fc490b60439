package git

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrBranchExists is returned by CreateBranch when the branch already exists.
	ErrBranchExists = errors.New("branch already exists")
	// ErrInvalidBranchName is returned by CreateBranch for names git rejects.
	ErrInvalidBranchName = errors.New("invalid branch name")
	// ErrDetachedHead is returned by CurrentBranch when HEAD is not a branch.
	ErrDetachedHead = errors.New("HEAD is detached")
)

// CreateBranch creates name from HEAD and checks it out.
func (r *Repo) CreateBranch(ctx context.Context, name string) error {
	if _, err := r.run(ctx, "check-ref-format", "--branch", name); err != nil {
		if exitCode(err) > 0 {
			return fmt.Errorf("%w: %q", ErrInvalidBranchName, name)
		}
		return err
	}

	exists, err := r.BranchExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrBranchExists, name)
	}

	if _, err := r.run(ctx, "checkout", "--quiet", "-b", name); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	return nil
}

// BranchExists reports whether a local branch called name exists.
func (r *Repo) BranchExists(ctx context.Context, name string) (bool, error) {
	_, err := r.run(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	switch {
	case err == nil:
		return true, nil
	case exitCode(err) == 1:
		return false, nil
	default:
		return false, err
	}
}

// CurrentBranch returns the short name of the checked-out branch.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		if exitCode(err) == 1 {
			return "", ErrDetachedHead
		}
		return "", err
	}
	return out, nil
}
