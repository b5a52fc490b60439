package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/steveyegge/git-start/internal/config"
	"github.com/steveyegge/git-start/internal/debug"
	"github.com/steveyegge/git-start/internal/git"
	"github.com/steveyegge/git-start/internal/ui"
)

func newConfigCmd(a *app, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change git-start settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, git.NewRepo(""), flags)
			if err != nil {
				return err
			}
			return printConfig(a, cfg)
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a value in the project config file",
		Long: "Set a value in .git-start.yaml in the repository root (or the file given\n" +
			"with --config). Comments and other settings in the file are kept.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configFile
			if path == "" {
				root, err := git.NewRepo("").Root(cmd.Context())
				if err != nil {
					return err
				}
				path = filepath.Join(root, config.ProjectFileName)
			}
			if err := config.SetValue(path, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(debug.Normal(a.stdout), "%s Set %s in %s\n", ui.RenderPass(ui.IconPass), args[0], path)
			return nil
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

func printConfig(a *app, cfg *config.Config) error {
	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	for _, e := range cfg.Entries() {
		value := e.Value
		if value == "" {
			value = ui.RenderMuted("(unset)")
		}
		fmt.Fprintf(w, "%s\t%s\n", e.Key, value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for _, f := range cfg.Files {
		fmt.Fprintf(a.stdout, "%s\n", ui.RenderMuted("# from "+f))
	}
	return nil
}
