package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/logicbridge/internal/cli"
	"github.com/aretw0/logicbridge/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive query loop",
	Long: `Reads goals from standard input and prints their solutions.
Type :help inside the loop for the list of commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := newApp(ctx, cmd, os.Stdout, nil)
		if err != nil {
			return err
		}
		defer app.Close()

		repl := &cli.REPL{App: app, In: os.Stdin, Out: os.Stdout, Render: tui.Plain, Limit: limit}
		if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
			tui.PrintBanner(os.Stdout)
			repl.Render = tui.NewRenderer()
		}
		return repl.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)

	replCmd.Flags().Int("limit", cli.DefaultLimit, "Maximum number of solutions listed per goal")
}
