package config

import (
	"context"
	"errors"
	"testing"

	"github.com/steveyegge/git-start/internal/git"
	"github.com/steveyegge/git-start/internal/prompt"
)

type fakeGitConfig struct {
	values map[string]string
	scopes map[string]git.ConfigScope
}

func newFakeGitConfig(kv ...string) *fakeGitConfig {
	f := &fakeGitConfig{values: map[string]string{}, scopes: map[string]git.ConfigScope{}}
	for i := 0; i+1 < len(kv); i += 2 {
		f.values[kv[i]] = kv[i+1]
	}
	return f
}

func (f *fakeGitConfig) GetConfig(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeGitConfig) SetConfig(_ context.Context, scope git.ConfigScope, key, value string) error {
	f.values[key] = value
	f.scopes[key] = scope
	return nil
}

func TestEnsureTrackerKeepsConfiguredValues(t *testing.T) {
	cfg := &Config{Tracker: TrackerConfig{APIToken: "tok", ProjectID: 5}}
	in := prompt.NewScripted()
	if err := EnsureTracker(context.Background(), cfg, newFakeGitConfig(), in); err != nil {
		t.Fatalf("EnsureTracker() error = %v", err)
	}
	if len(in.Prompts()) != 0 {
		t.Errorf("unexpected prompts: %v", in.Prompts())
	}
}

func TestEnsureTrackerFromGitConfig(t *testing.T) {
	cfg := &Config{}
	gc := newFakeGitConfig(GitKeyAPIToken, "git-token", GitKeyProjectID, " 77 ")
	if err := EnsureTracker(context.Background(), cfg, gc, nil); err != nil {
		t.Fatalf("EnsureTracker() error = %v", err)
	}
	if cfg.Tracker.APIToken != "git-token" || cfg.Tracker.ProjectID != 77 {
		t.Errorf("got %+v", cfg.Tracker)
	}
}

func TestEnsureTrackerPromptsAndPersists(t *testing.T) {
	cfg := &Config{}
	gc := newFakeGitConfig()
	in := prompt.NewScripted("new-token", "4321")

	if err := EnsureTracker(context.Background(), cfg, gc, in); err != nil {
		t.Fatalf("EnsureTracker() error = %v", err)
	}
	if cfg.Tracker.APIToken != "new-token" || cfg.Tracker.ProjectID != 4321 {
		t.Errorf("got %+v", cfg.Tracker)
	}
	if gc.values[GitKeyAPIToken] != "new-token" || gc.scopes[GitKeyAPIToken] != git.ScopeGlobal {
		t.Errorf("token not saved globally: %v %v", gc.values, gc.scopes)
	}
	if gc.values[GitKeyProjectID] != "4321" || gc.scopes[GitKeyProjectID] != git.ScopeLocal {
		t.Errorf("project id not saved locally: %v %v", gc.values, gc.scopes)
	}
}

func TestEnsureTrackerInvalidProjectIDNotSaved(t *testing.T) {
	cfg := &Config{Tracker: TrackerConfig{APIToken: "tok"}}
	gc := newFakeGitConfig()
	err := EnsureTracker(context.Background(), cfg, gc, prompt.NewScripted("abc"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
	if _, ok := gc.values[GitKeyProjectID]; ok {
		t.Error("invalid project id must not be saved")
	}
}

func TestEnsureTrackerMissingWithoutPrompt(t *testing.T) {
	for name, in := range map[string]prompt.LineReader{
		"no reader":    nil,
		"end of input": prompt.NewScripted(),
		"blank answer": prompt.NewScripted(""),
	} {
		t.Run(name, func(t *testing.T) {
			err := EnsureTracker(context.Background(), &Config{}, newFakeGitConfig(), in)
			if !errors.Is(err, ErrMissingCredentials) {
				t.Errorf("err = %v, want ErrMissingCredentials", err)
			}
		})
	}
}
