package main

import (
	"context"
	"fmt"

	"github.com/aretw0/logicbridge"
	"github.com/aretw0/logicbridge/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var programCmd = &cobra.Command{
	Use:   "program",
	Short: "Manage programs in the configured store",
}

var programSaveCmd = &cobra.Command{
	Use:   "save FILE...",
	Short: "Consult files into the session and store its program",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := newApp(ctx, cmd, cmd.ErrOrStderr(), nil)
		if err != nil {
			return err
		}
		defer app.Close()

		err = app.WithSession(ctx, func(ctx context.Context, s *logicbridge.Session) error {
			for _, path := range args {
				if err := s.ConsultFile(ctx, path); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := app.Sessions.Save(ctx, app.SessionName()); err != nil {
			return err
		}
		tui.Status(cmd.OutOrStdout(), true, "saved "+app.SessionName())
		return nil
	},
}

var programShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a stored program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := newApp(ctx, cmd, cmd.ErrOrStderr(), nil)
		if err != nil {
			return err
		}
		defer app.Close()

		clauses, err := app.Sessions.Store().Load(ctx, args[0])
		if err != nil {
			return err
		}
		for _, c := range clauses {
			fmt.Fprintf(cmd.OutOrStdout(), "%s.\n", c)
		}
		return nil
	},
}

var programListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored programs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := newApp(ctx, cmd, cmd.ErrOrStderr(), nil)
		if err != nil {
			return err
		}
		defer app.Close()

		names, err := app.Sessions.Store().List(ctx)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var programDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Remove a stored program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := newApp(ctx, cmd, cmd.ErrOrStderr(), nil)
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Sessions.Store().Delete(ctx, args[0])
	},
}

func init() {
	rootCmd.AddCommand(programCmd)
	programCmd.AddCommand(programSaveCmd, programShowCmd, programListCmd, programDeleteCmd)
}
