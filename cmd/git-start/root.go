package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/steveyegge/git-start/internal/config"
	"github.com/steveyegge/git-start/internal/debug"
	"github.com/steveyegge/git-start/internal/git"
	"github.com/steveyegge/git-start/internal/pivotal"
	"github.com/steveyegge/git-start/internal/telemetry"
	"github.com/steveyegge/git-start/internal/tracker"
	"github.com/steveyegge/git-start/internal/types"
	"github.com/steveyegge/git-start/internal/ui"
	"github.com/steveyegge/git-start/internal/workflow"
)

const usageLine = "git-start [id|type|filter['|'filter ...]] [limit]"

const longHelp = `Start a Pivotal Tracker story: choose the story, create a branch for it,
install the commit-message hook and mark the story started with you as owner.

The first argument selects the story:
  id       a story id, e.g. 12345
  type     feature, bug or chore
  filter   a Pivotal Tracker search expression; several filters may be
           joined with '|'
Without an argument unstarted stories are listed. The second argument limits
how many stories are listed per page (default 10).`

const examples = `  git start 12345
  git start bug
  git start 'label:add-ons'
  git start 'created_since:6/20/2015'
  git start 'mywork:josephtk'
  git start 'owner:josephtk'
  git start 'requester:josephtk'
  git start 'no:owner'
  git start 'label:add-ons|no:owner' 20`

type rootFlags struct {
	configFile string
	project    int64
	owner      string
	verbose    bool
	quiet      bool
	noColor    bool
}

func newRootCmd(a *app) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:           usageLine,
		Short:         "Start a Pivotal Tracker story on a new branch",
		Long:          longHelp,
		Example:       examples,
		Args:          cobra.MaximumNArgs(2),
		Version:       fullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug.SetVerbose(flags.verbose)
			debug.SetQuiet(flags.quiet)
			if flags.noColor {
				ui.DisableColor()
			}
			debug.Logf("git-start %s\n", fullVersion())
			return telemetry.Init(cmd.Context(), "git-start", Version)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, limit, err := parseStartArgs(args)
			if err != nil {
				return err
			}
			return runStart(cmd, a, &flags, filter, limit)
		},
	}

	cmd.SetVersionTemplate("git-start version {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default: .git-start.yaml in the repository root)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug output")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "suppress informational output")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	cmd.Flags().Int64Var(&flags.project, "project", 0, "Pivotal Tracker project id (overrides tracker.project_id)")
	cmd.Flags().StringVar(&flags.owner, "owner", "", "owner to assign (overrides start.owner and git user.name)")

	cmd.AddCommand(newConfigCmd(a, &flags), newVersionCmd(a))
	return cmd
}

// parseStartArgs splits the positional arguments into filter and limit.
// A limit of 0 means "use the configured default".
func parseStartArgs(args []string) (string, int, error) {
	var filter string
	var limit int
	if len(args) > 0 {
		filter = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil || n < 1 || n > pivotal.MaxPageSize {
			return "", 0, fmt.Errorf("invalid limit %q: must be a number between 1 and %d", args[1], pivotal.MaxPageSize)
		}
		limit = n
	}
	return filter, limit, nil
}

// loadConfig reads configuration for the repository at repo.
func loadConfig(cmd *cobra.Command, repo *git.Repo, flags *rootFlags) (*config.Config, error) {
	root, err := repo.Root(cmd.Context())
	if err != nil {
		return nil, err
	}

	opts := config.LoadOptions{
		ProjectDir: root,
		ConfigFile: flags.configFile,
		Flags:      map[string]*pflag.Flag{},
	}
	if f := cmd.Flags().Lookup("project"); f != nil {
		opts.Flags[config.KeyProjectID] = f
	}
	if f := cmd.Flags().Lookup("owner"); f != nil {
		opts.Flags[config.KeyOwner] = f
	}
	return config.Load(opts)
}

func runStart(cmd *cobra.Command, a *app, flags *rootFlags, filter string, limit int) error {
	ctx := cmd.Context()
	logger := debug.Logger()
	repo := git.NewRepo("")

	cfg, err := loadConfig(cmd, repo, flags)
	if err != nil {
		return err
	}
	logger.Debug("loaded config", "files", cfg.Files)

	in := a.openInput()
	defer func() { _ = in.Close() }()

	if err := config.EnsureTracker(ctx, cfg, repo, in); err != nil {
		return err
	}

	client := pivotal.NewClient(cfg.Tracker.APIToken).WithEndpoint(cfg.Tracker.Endpoint)
	t := tracker.WrapTracker(pivotal.NewTracker(client))

	if limit == 0 {
		limit = cfg.Start.Limit
	}

	render := ui.RenderStory
	if debug.IsQuiet() {
		render = func(types.StorySummary) string { return "" }
	}

	starter := workflow.NewStarter(t, repo, in, a.stdout, workflow.Options{
		ProjectID:    cfg.Tracker.ProjectID,
		Owner:        cfg.Start.Owner,
		HookName:     cfg.Start.HookName,
		HookScript:   cfg.Start.HookScript,
		DefaultQuery: cfg.Tracker.DefaultQuery,
		Logger:       logger,
		ListFormat:   ui.FormatStoryLine,
		RenderStory:  render,
	})

	out, err := starter.Run(ctx, filter, limit)
	logger.Debug("start finished", "state", out.State.String(), "story", out.Story.ID)
	return err
}
