package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kanbansync/internal/appversion"
	"kanbansync/pkg/config"
	"kanbansync/pkg/tracker"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	tasksFile  string
	logLevel   string
	json       bool

	// runner overrides the gh runner; nil uses the gh executable.
	runner tracker.Runner
}

// newRootCmd creates the root kanbansync command with all subcommands attached.
func newRootCmd() *cobra.Command {
	return newRootCmdWithRunner(nil)
}

// newRootCmdWithRunner creates the root command with an injected gh runner.
func newRootCmdWithRunner(runner tracker.Runner) *cobra.Command {
	g := &globalFlags{runner: runner}

	cmd := &cobra.Command{
		Use:   "kanbansync",
		Short: "Reconcile a markdown task board with GitHub issues",
		Long: "kanbansync keeps TASKS.md and the issues of one GitHub repository in step.\n" +
			"Statuses flow from GitHub on pull; detail documents flow to GitHub on push,\n" +
			"and concurrent edits are stopped and written out for manual reconciliation.",
		Version:       fmt.Sprintf("kanbansync %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", config.DefaultConfigFile, "path to the config file (yaml, toml or json)")
	flags.StringVar(&g.tasksFile, "tasks-file", "", "override the tasks file from the config")
	flags.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&g.json, "json", false, "print machine-readable JSON")

	cmd.AddCommand(
		newStatusCmd(g),
		newPullCmd(g),
		newPushCmd(g),
		newBootstrapCmd(g),
		newReconcileCmd(g),
		newConflictsCmd(g),
	)

	return cmd
}
