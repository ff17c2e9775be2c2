package main

import (
	"errors"

	"github.com/spf13/cobra"

	"kanbansync/pkg/reconcile"
)

// newPushCmd creates the "kanbansync push" subcommand.
func newPushCmd(g *globalFlags) *cobra.Command {
	var opts reconcile.RunOptions

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Write local tasks to GitHub issues",
		Long: "Creates issues for unlinked tasks and updates linked issues. A task whose\n" +
			"issue changed since the last pull is skipped; when both sides changed a\n" +
			"conflict artifact is written under .kanbansync/conflicts/.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), g, cmd.ErrOrStderr(), func(s *session) error {
				res, err := s.engine.Push(cmd.Context(), opts)
				return errors.Join(err, newReporter(cmd.OutOrStdout(), g.json).push(res))
			})
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print planned changes without writing")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite remote bodies even when they changed since the last pull")

	return cmd
}
