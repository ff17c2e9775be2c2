package main

import (
	"errors"

	"github.com/spf13/cobra"

	"kanbansync/pkg/reconcile"
)

// newBootstrapCmd creates the "kanbansync bootstrap" subcommand.
func newBootstrapCmd(g *globalFlags) *cobra.Command {
	var (
		opts reconcile.RunOptions
		from string
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Seed the board from GitHub or GitHub from the board",
		Long: "--from remote imports every unlinked issue as a new task.\n" +
			"--from local pushes every task, creating issues for unlinked ones.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := reconcile.ParseDirection(from)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), g, cmd.ErrOrStderr(), func(s *session) error {
				res, err := s.engine.Bootstrap(cmd.Context(), dir, opts)
				return errors.Join(err, newReporter(cmd.OutOrStdout(), g.json).bootstrap(res))
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "seed direction: local or remote")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute changes without writing")
	cmd.Flags().BoolVar(&opts.Confirm, "confirm", false, "confirm a bootstrap when the config requires it")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}
