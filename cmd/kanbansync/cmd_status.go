package main

import (
	"github.com/spf13/cobra"
)

// newStatusCmd creates the "kanbansync status" subcommand.
func newStatusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Compare the task board with GitHub without writing",
		Long: "Reports task and issue counts, status divergences, the detail content\n" +
			"state of every linked task, remote-only issues and pending conflicts.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), g, cmd.ErrOrStderr(), func(s *session) error {
				rep, err := s.engine.Status(cmd.Context())
				if err != nil {
					return err
				}
				return newReporter(cmd.OutOrStdout(), g.json).status(rep)
			})
		},
	}
}
