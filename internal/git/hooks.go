package git

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

//go:embed templates/*
var templatesFS embed.FS

// HookMarker identifies hooks installed by git-start.
const HookMarker = "# git-start hook"

// DefaultHookName is the hook installed when none is configured.
const DefaultHookName = "prepare-commit-msg"

// HookAction describes what AddHook did.
type HookAction int

const (
	HookUnchanged HookAction = iota // identical hook already installed
	HookInstalled                   // no hook existed
	HookUpdated                     // an older git-start hook was replaced
	HookReplaced                    // a foreign hook was moved to <name>.backup
)

func (a HookAction) String() string {
	switch a {
	case HookInstalled:
		return "installed"
	case HookUpdated:
		return "updated"
	case HookReplaced:
		return "replaced"
	default:
		return "unchanged"
	}
}

// EmbeddedHook returns the built-in script for hook name.
func EmbeddedHook(name string) ([]byte, error) {
	content, err := templatesFS.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("no built-in %s hook: %w", name, err)
	}
	return normalizeHook(content), nil
}

// AddHook installs the script at scriptPath as hook name. An empty
// scriptPath installs the built-in script. Installing the same script twice
// is a no-op; a hook not written by git-start is kept as <name>.backup.
func (r *Repo) AddHook(ctx context.Context, name, scriptPath string) (HookAction, error) {
	content, err := r.hookContent(name, scriptPath)
	if err != nil {
		return HookUnchanged, err
	}

	hooksDir, err := r.HooksDir(ctx)
	if err != nil {
		return HookUnchanged, err
	}
	if err := r.Fs.MkdirAll(hooksDir, 0755); err != nil {
		return HookUnchanged, fmt.Errorf("create hooks directory: %w", err)
	}

	hookPath := filepath.Join(hooksDir, name)
	action := HookInstalled

	existing, err := afero.ReadFile(r.Fs, hookPath)
	switch {
	case err == nil && bytes.Equal(existing, content):
		return HookUnchanged, nil
	case err == nil && bytes.Contains(existing, []byte(HookMarker)):
		action = HookUpdated
	case err == nil:
		if err := r.Fs.Rename(hookPath, hookPath+".backup"); err != nil {
			return HookUnchanged, fmt.Errorf("backup %s hook: %w", name, err)
		}
		action = HookReplaced
	}

	// #nosec G306 -- git hooks must be executable for Git to run them
	if err := afero.WriteFile(r.Fs, hookPath, content, 0755); err != nil {
		return HookUnchanged, fmt.Errorf("write %s hook: %w", name, err)
	}
	return action, nil
}

func (r *Repo) hookContent(name, scriptPath string) ([]byte, error) {
	if scriptPath == "" {
		return EmbeddedHook(name)
	}
	content, err := afero.ReadFile(r.Fs, scriptPath)
	if err != nil {
		return nil, fmt.Errorf("read hook script: %w", err)
	}
	return markHook(normalizeHook(content)), nil
}

// normalizeHook converts CRLF line endings; git hooks with CRLF fail with
// "/bin/sh^M: bad interpreter".
func normalizeHook(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}

// markHook inserts HookMarker after the shebang line if it is missing.
func markHook(content []byte) []byte {
	if bytes.Contains(content, []byte(HookMarker)) {
		return content
	}
	s := string(content)
	if strings.HasPrefix(s, "#!") {
		shebang, rest, _ := strings.Cut(s, "\n")
		return []byte(shebang + "\n" + HookMarker + "\n" + rest)
	}
	return []byte(HookMarker + "\n" + s)
}
