package main

import (
	"errors"

	"github.com/spf13/cobra"

	"kanbansync/pkg/reconcile"
)

// newReconcileCmd creates the "kanbansync reconcile" subcommand.
func newReconcileCmd(g *globalFlags) *cobra.Command {
	var (
		accept string
		list   bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile <task-id> | --list",
		Short: "Resolve a detail conflict for one task",
		Long: "Without --accept, (re)writes the conflict artifact for the task.\n" +
			"--accept local keeps the detail file and lets the next push overwrite GitHub.\n" +
			"--accept remote replaces the detail file with the issue's detail section.\n" +
			"--list prints the pending conflict artifacts.",
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				if accept != "" {
					return errors.New("--list cannot be combined with --accept")
				}
				return listConflicts(cmd, g)
			}
			choice, err := reconcile.ParseAccept(accept)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), g, cmd.ErrOrStderr(), func(s *session) error {
				res, err := s.engine.Reconcile(cmd.Context(), args[0], choice)
				if err != nil {
					return err
				}
				return newReporter(cmd.OutOrStdout(), g.json).reconcile(res)
			})
		},
	}

	cmd.Flags().StringVar(&accept, "accept", "", "side to keep: local or remote")
	cmd.Flags().BoolVar(&list, "list", false, "list pending conflict artifacts")

	return cmd
}
