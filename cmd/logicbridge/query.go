package main

import (
	"os"
	"strings"

	"github.com/aretw0/logicbridge/internal/cli"
	"github.com/aretw0/logicbridge/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var queryCmd = &cobra.Command{
	Use:   "query GOAL",
	Short: "Print the bindings of a goal's solutions",
	Example: `  logicbridge query -p family.pl "parent(X, Y)"
  logicbridge query --all -p family.pl "parent(a, X)"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		app, err := newApp(cmd.Context(), cmd, cmd.OutOrStdout(), nil)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.Query(cmd.Context(), app, cmd.OutOrStdout(), renderer(), strings.Join(args, " "), all)
	},
}

var findallCmd = &cobra.Command{
	Use:   "findall GOAL",
	Short: "Print every solution of a goal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context(), cmd, cmd.OutOrStdout(), nil)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.FindAll(cmd.Context(), app, cmd.OutOrStdout(), renderer(), strings.Join(args, " "))
	},
}

// renderer styles markdown on a terminal and passes it through otherwise.
func renderer() tui.Renderer {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return tui.NewRenderer()
	}
	return tui.Plain
}

func init() {
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(findallCmd)

	queryCmd.Flags().BoolP("all", "a", false, "List every solution instead of the first")
}
