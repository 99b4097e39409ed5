package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/records/internal/config"
	"github.com/JonMunkholm/records/internal/logging"
)

// app carries state shared by subcommands.
type app struct {
	configPath string
	cfg        *config.Config
}

// loadConfig reads configuration and sets up logging. Runs before every
// subcommand that needs a config.
func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	a.cfg = cfg

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())
	return nil
}

func rootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:               "server",
		Short:             "Employee records API with spreadsheet bulk import",
		SilenceUsage:      true,
		PersistentPreRunE: a.loadConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("CONFIG_FILE"),
		"YAML config file; environment variables override its values")

	root.AddCommand(
		serveCommand(a),
		migrateCommand(a),
		importCommand(a),
		templateCommand(),
		envCommand(),
	)
	return root
}

// envCommand prints every supported environment variable.
func envCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List supported environment variables",
		// No config needed to describe the config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.Usage())
			return err
		},
	}
}

func syncLogs() error {
	return logging.Sync()
}
