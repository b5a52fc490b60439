// Package workflow sequences the start of a story: pick the story, create a
// branch for it, install the commit hook and mark it started on the tracker.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/steveyegge/git-start/internal/git"
	"github.com/steveyegge/git-start/internal/prompt"
	"github.com/steveyegge/git-start/internal/query"
	"github.com/steveyegge/git-start/internal/resolver"
	"github.com/steveyegge/git-start/internal/tracker"
	"github.com/steveyegge/git-start/internal/types"
)

// State is a step of one start run.
type State int

const (
	StateInit State = iota
	StateClassifying
	StateResolving
	StateCancelled
	StateNotFound
	StateResolved
	StateBranching
	StateHooking
	StateStarting
	StateDone
	StateFatalError
)

var stateNames = map[State]string{
	StateInit:        "init",
	StateClassifying: "classifying",
	StateResolving:   "resolving",
	StateCancelled:   "cancelled",
	StateNotFound:    "not_found",
	StateResolved:    "resolved",
	StateBranching:   "branching",
	StateHooking:     "hooking",
	StateStarting:    "starting",
	StateDone:        "done",
	StateFatalError:  "fatal_error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateCancelled, StateNotFound, StateDone, StateFatalError:
		return true
	}
	return false
}

// errInputClosed ends a run at the branch prompt when input is exhausted.
var errInputClosed = errors.New("input closed")

// ErrNoOwner is returned when no committer identity is available to own the story.
var ErrNoOwner = errors.New("no owner: set start.owner or git config user.name")

// VCS is the version-control collaborator.
type VCS interface {
	CreateBranch(ctx context.Context, name string) error
	CurrentBranch(ctx context.Context) (string, error)
	AddHook(ctx context.Context, name, scriptPath string) (git.HookAction, error)
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, scope git.ConfigScope, key, value string) error
}

var _ VCS = (*git.Repo)(nil)

// Options are the explicit parameters of a run.
type Options struct {
	ProjectID int64
	// Owner overrides git config user.name as the story owner.
	Owner string
	// HookName and HookScript select the hook to install; an empty script
	// installs the built-in one.
	HookName   string
	HookScript string
	// DefaultQuery is the query used for an empty filter.
	DefaultQuery string

	Logger *slog.Logger
	// ListFormat renders a candidate in the selection list.
	ListFormat func(types.StorySummary) string
	// RenderStory renders the chosen story before branching.
	RenderStory func(types.StorySummary) string
}

// Outcome reports how far a run got.
type Outcome struct {
	State State
	// FailedIn is the step that failed when State is StateFatalError.
	FailedIn State
	Story    types.StorySummary
	Branch   string
	Hook     git.HookAction
}

// Starter runs the start workflow.
type Starter struct {
	tracker  tracker.StoryTracker
	vcs      VCS
	in       prompt.LineReader
	out      io.Writer
	opts     Options
	logger   *slog.Logger
	resolver *resolver.Resolver
}

// NewStarter creates a Starter. Prompts are read from in; progress is
// written to out.
func NewStarter(t tracker.StoryTracker, vcs VCS, in prompt.LineReader, out io.Writer, opts Options) *Starter {
	if opts.HookName == "" {
		opts.HookName = git.DefaultHookName
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.RenderStory == nil {
		opts.RenderStory = func(s types.StorySummary) string { return s.String() + "\n" }
	}

	return &Starter{
		tracker: t,
		vcs:     vcs,
		in:      in,
		out:     out,
		opts:    opts,
		logger:  logger,
		resolver: resolver.New(t, in, out,
			resolver.WithLogger(logger),
			resolver.WithDefaultQuery(opts.DefaultQuery),
			resolver.WithListFormat(opts.ListFormat),
		),
	}
}

// Run starts the story selected by filter, listing at most limit stories per page.
func (s *Starter) Run(ctx context.Context, filter string, limit int) (Outcome, error) {
	out := Outcome{State: StateInit}
	fail := func(err error) (Outcome, error) {
		out.FailedIn = out.State
		out.State = StateFatalError
		s.logger.Debug("start failed", "step", out.FailedIn.String(), "error", err)
		return out, err
	}

	fmt.Fprintln(s.out, "Type `git start -h` for help")

	out.State = StateClassifying
	spec := query.Classify(filter)
	s.logger.Debug("classified filter", "filter", filter, "spec", spec.String())

	out.State = StateResolving
	res, err := s.resolver.Resolve(ctx, s.opts.ProjectID, spec, limit)
	if err != nil {
		return fail(err)
	}
	switch res.Outcome {
	case resolver.Cancelled:
		out.State = StateCancelled
		return out, nil
	case resolver.NoMatch:
		out.State = StateNotFound
		return out, nil
	}

	out.State = StateResolved
	out.Story = res.Story
	story := res.Story
	fmt.Fprintln(s.out)
	fmt.Fprint(s.out, s.opts.RenderStory(story))
	fmt.Fprintln(s.out)

	owner, err := s.owner(ctx)
	if err != nil {
		return fail(err)
	}

	out.State = StateBranching
	branch, err := s.branch(ctx, story)
	if errors.Is(err, errInputClosed) {
		fmt.Fprintln(s.out)
		out.State = StateCancelled
		return out, nil
	}
	if err != nil {
		return fail(err)
	}
	out.Branch = branch

	out.State = StateHooking
	action, err := s.vcs.AddHook(ctx, s.opts.HookName, s.opts.HookScript)
	if err != nil {
		return fail(fmt.Errorf("install %s hook: %w", s.opts.HookName, err))
	}
	out.Hook = action
	s.logger.Debug("hook", "name", s.opts.HookName, "action", action.String())

	out.State = StateStarting
	fmt.Fprintf(s.out, "Starting story on %s... ", s.tracker.DisplayName())
	update := types.StoryUpdate{State: types.StateStarted, Owner: owner}
	if err := s.tracker.UpdateStory(ctx, s.opts.ProjectID, story.ID, update); err != nil {
		fmt.Fprintln(s.out, "FAIL")
		return fail(err)
	}
	fmt.Fprintln(s.out, "OK")

	out.State = StateDone
	return out, nil
}

// owner returns the configured owner or the git committer name.
func (s *Starter) owner(ctx context.Context) (string, error) {
	if owner := strings.TrimSpace(s.opts.Owner); owner != "" {
		return owner, nil
	}
	name, err := s.vcs.GetConfig(ctx, "user.name")
	if err != nil {
		return "", err
	}
	if name = strings.TrimSpace(name); name == "" {
		return "", ErrNoOwner
	}
	return name, nil
}

// branch asks for a branch name, creates "<id>-<name>" unless the answer is
// blank, and records the story id on the checked-out branch. It returns
// errInputClosed when input ends before an answer.
func (s *Starter) branch(ctx context.Context, story types.StorySummary) (string, error) {
	id := strconv.FormatInt(story.ID, 10)
	question := fmt.Sprintf("Enter branch name (%s-<branch-name> or enter to skip branch creation): ", id)

	line, err := s.in.ReadLine(ctx, question)
	if errors.Is(err, io.EOF) {
		return "", errInputClosed
	}
	if err != nil {
		return "", err
	}

	var created string
	if suffix := strings.TrimSpace(line); suffix != "" {
		created = id + "-" + suffix
		if err := s.vcs.CreateBranch(ctx, created); err != nil {
			return "", err
		}
		fmt.Fprintf(s.out, "Switched to a new branch '%s'\n", created)
	}

	current, err := s.vcs.CurrentBranch(ctx)
	if errors.Is(err, git.ErrDetachedHead) {
		s.logger.Debug("not recording story id on detached HEAD", "id", story.ID)
		return created, nil
	}
	if err != nil {
		return created, err
	}
	if err := s.vcs.SetConfig(ctx, git.ScopeLocal, git.StoryKey(current), id); err != nil {
		return created, err
	}
	return created, nil
}
