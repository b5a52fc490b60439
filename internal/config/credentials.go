package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/steveyegge/git-start/internal/git"
	"github.com/steveyegge/git-start/internal/prompt"
)

// Git config keys used as a fallback for the tracker credentials.
const (
	GitKeyAPIToken  = "pivotal.api-token"
	GitKeyProjectID = "pivotal.project-id"
)

// ErrMissingCredentials is returned when a required setting is absent and
// cannot be prompted for.
var ErrMissingCredentials = errors.New("missing tracker credentials")

// GitConfig reads and writes git configuration.
type GitConfig interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, scope git.ConfigScope, key, value string) error
}

// EnsureTracker fills in the API token and project id from git config and,
// when still missing, by asking the operator. Prompted values are saved to
// git config: the token globally, the project id in the repository. A nil
// in disables prompting.
func EnsureTracker(ctx context.Context, cfg *Config, gc GitConfig, in prompt.LineReader) error {
	if cfg.Tracker.APIToken == "" {
		token, err := fromGitOrPrompt(ctx, gc, in, credential{
			key:      GitKeyAPIToken,
			scope:    git.ScopeGlobal,
			question: "Pivotal API Token (found at https://www.pivotaltracker.com/profile): ",
		})
		if err != nil {
			return err
		}
		cfg.Tracker.APIToken = token
	}

	if cfg.Tracker.ProjectID == 0 {
		value, err := fromGitOrPrompt(ctx, gc, in, credential{
			key:      GitKeyProjectID,
			scope:    git.ScopeLocal,
			question: "Pivotal Project ID: ",
			validate: func(s string) error {
				_, err := parseProjectID(s)
				return err
			},
		})
		if err != nil {
			return err
		}
		cfg.Tracker.ProjectID, _ = parseProjectID(value)
	}
	return nil
}

type credential struct {
	key      string
	scope    git.ConfigScope
	question string
	validate func(string) error
}

func fromGitOrPrompt(ctx context.Context, gc GitConfig, in prompt.LineReader, c credential) (string, error) {
	value, err := gc.GetConfig(ctx, c.key)
	if err != nil {
		return "", err
	}
	if value = strings.TrimSpace(value); value != "" {
		if c.validate != nil {
			if err := c.validate(value); err != nil {
				return "", fmt.Errorf("git config %s: %w", c.key, err)
			}
		}
		return value, nil
	}

	if in == nil {
		return "", fmt.Errorf("%w: set %s", ErrMissingCredentials, c.key)
	}

	line, err := in.ReadLine(ctx, c.question)
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: set %s", ErrMissingCredentials, c.key)
	}
	if err != nil {
		return "", err
	}
	if value = strings.TrimSpace(line); value == "" {
		return "", fmt.Errorf("%w: set %s", ErrMissingCredentials, c.key)
	}
	if c.validate != nil {
		if err := c.validate(value); err != nil {
			return "", err
		}
	}

	if err := gc.SetConfig(ctx, c.scope, c.key, value); err != nil {
		return "", fmt.Errorf("save %s: %w", c.key, err)
	}
	return value, nil
}

func parseProjectID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: project id %q is not a positive number", ErrInvalidConfig, s)
	}
	return id, nil
}
