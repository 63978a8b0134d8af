// Package cli wires the pmtrackd commands: the HTTP server and the offline
// spreadsheet import and report export.
package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pmtrack-backend/config"
	"pmtrack-backend/internal/db"
	"pmtrack-backend/internal/store"
)

const defaultConfigPath = "./config/config.yaml"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	EnvFile    string

	logger *log.Logger
}

// NewRootCommand creates the root command for pmtrackd.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pmtrackd",
		Short: "Preventive-maintenance record tracker",
		Long:  "Tracks preventive-maintenance cycles per machine, with spreadsheet import and PDF/XLSX reports.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(opts.EnvFile); err != nil {
				return fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
			}
			opts.logger = log.New(cmd.ErrOrStderr(), "pmtrack ", log.LstdFlags)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $CONFIG_PATH or "+defaultConfigPath+")")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "optional .env file")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// loadConfig reads the config named by --config or CONFIG_PATH, which must exist.
// Without either, the default path is tried and defaults are used if it is absent.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	path := o.ConfigPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		return config.LoadOrDefault(defaultConfigPath)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	o.logger.Printf("configuration loaded successfully from %s", path)
	return cfg, nil
}

// openStore connects to the configured database. The returned func closes it.
func (o *RootOptions) openStore(cfg *config.Config) (store.Store, func(), error) {
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	closeDB := func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return store.NewGormStore(gormDB), closeDB, nil
}
