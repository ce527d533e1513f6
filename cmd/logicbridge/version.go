package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/logicbridge"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of logicbridge",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "logicbridge version %s\n", strings.TrimSpace(logicbridge.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
