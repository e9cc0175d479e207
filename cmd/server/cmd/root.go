package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tuplan/server/internal/config"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// loadConfig reads the config file (when --config is set) and environment,
// then applies logging flag overrides.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	serveCmd := newServeCommand(opts)

	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "TuPlan server - multi-tenant event catalog",
		Long: `TuPlan server hosts a catalog of events published by companies.

Companies manage their own events, readers browse all of them and admins
can manage everything. The server exposes:
- A JSON API under /api/v1/events
- An HTML entry form under /panel
- Health, readiness, version and Prometheus metrics endpoints`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Run serve when no subcommand is given.
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file path (optional, env vars override it)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, console) (default: json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newMigrateCommand(opts))
	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newHealthcheckCommand())
	return rootCmd
}

// Execute runs the root command. It is called once by main.main.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
