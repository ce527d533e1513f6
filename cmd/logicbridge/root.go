package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/logicbridge/internal/cli"
	"github.com/aretw0/logicbridge/internal/config"
	"github.com/aretw0/logicbridge/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "logicbridge",
	Short: "Query logic programs that call back into Go",
	Long: `logicbridge runs logic programs on an embedded engine and lets them call
registered Go functions through go_getobj, go_bind, go_true and go_delobj.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML configuration file")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("session", "", "Session name")
	flags.String("store", "", "Program store: memory, file, sqlite or redis")
	flags.StringSliceP("program", "p", nil, "Program file to consult into new sessions (repeatable)")
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := flags.GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if v, _ := flags.GetString("session"); v != "" {
		cfg.Session.Name = v
	}
	if v, _ := flags.GetString("store"); v != "" {
		cfg.Store.Kind = v
	}
	if v, _ := flags.GetStringSlice("program"); len(v) > 0 {
		cfg.Programs = append(cfg.Programs, v...)
	}
	return cfg, cfg.Validate()
}

// newApp builds the shared application state. Engine output goes to out.
func newApp(ctx context.Context, cmd *cobra.Command, out io.Writer, reg prometheus.Registerer) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.For(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(ctx, cfg, logger, out, reg)
}
