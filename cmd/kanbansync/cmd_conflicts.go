package main

import (
	"slices"

	"github.com/spf13/cobra"
)

// newConflictsCmd creates the "kanbansync conflicts" subcommand, a shorthand
// for "kanbansync reconcile --list".
func newConflictsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List pending conflict artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listConflicts(cmd, g)
		},
	}
}

func listConflicts(cmd *cobra.Command, g *globalFlags) error {
	return withSession(cmd.Context(), g, cmd.ErrOrStderr(), func(s *session) error {
		return newReporter(cmd.OutOrStdout(), g.json).conflicts(slices.Collect(s.engine.ListConflicts()))
	})
}
