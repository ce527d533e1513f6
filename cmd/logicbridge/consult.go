package main

import (
	"context"
	"fmt"

	"github.com/aretw0/logicbridge"
	"github.com/aretw0/logicbridge/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var consultCmd = &cobra.Command{
	Use:   "consult FILE...",
	Short: "Check that program files load",
	Long:  `Consults each file into a fresh session and reports how many clauses it added.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := newApp(ctx, cmd, cmd.ErrOrStderr(), nil)
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		return app.WithSession(ctx, func(ctx context.Context, s *logicbridge.Session) error {
			for _, path := range args {
				before := len(s.Program())
				if err := s.ConsultFile(ctx, path); err != nil {
					tui.Status(out, false, path)
					return err
				}
				tui.Status(out, true, fmt.Sprintf("%s: %d clauses", path, len(s.Program())-before))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(consultCmd)
}
