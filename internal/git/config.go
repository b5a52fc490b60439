package git

import (
	"context"
	"fmt"
)

// ConfigScope selects which git config file SetConfig writes.
type ConfigScope int

const (
	ScopeLocal ConfigScope = iota
	ScopeGlobal
)

// GetConfig returns the value of key, or "" when it is unset.
func (r *Repo) GetConfig(ctx context.Context, key string) (string, error) {
	out, err := r.run(ctx, "config", "--get", key)
	if err != nil {
		if exitCode(err) == 1 {
			return "", nil
		}
		return "", fmt.Errorf("read git config %s: %w", key, err)
	}
	return out, nil
}

// SetConfig writes key=value to the repository or user config.
func (r *Repo) SetConfig(ctx context.Context, scope ConfigScope, key, value string) error {
	args := []string{"config"}
	if scope == ScopeGlobal {
		args = append(args, "--global")
	} else {
		args = append(args, "--local")
	}
	args = append(args, key, value)
	if _, err := r.run(ctx, args...); err != nil {
		return fmt.Errorf("write git config %s: %w", key, err)
	}
	return nil
}

// StoryKey is the git config key holding the story id recorded for branch.
func StoryKey(branch string) string {
	return "branch." + branch + ".pivotal-story-id"
}
