package main

import (
	"github.com/spf13/cobra"

	"kanbansync/pkg/reconcile"
)

// newPullCmd creates the "kanbansync pull" subcommand.
func newPullCmd(g *globalFlags) *cobra.Command {
	var opts reconcile.RunOptions

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Copy issue state from GitHub onto linked tasks",
		Long: "Copies status, labels, milestone and board dates from GitHub onto every\n" +
			"linked task and records a fresh sync baseline. GitHub always wins.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), g, cmd.ErrOrStderr(), func(s *session) error {
				res, err := s.engine.Pull(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return newReporter(cmd.OutOrStdout(), g.json).pull(res)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute changes without writing")

	return cmd
}
