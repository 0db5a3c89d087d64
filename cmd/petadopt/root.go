// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/petadopt/petadopt/internal/config"
	"github.com/petadopt/petadopt/internal/logging"
	"github.com/petadopt/petadopt/internal/xdg"
)

// Global flags available to all subcommands.
var (
	configFile string
	envFile    string
)

// NewRootCmd creates the root command for the PetAdopt CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "petadopt",
		Short: "PetAdopt - pet adoption listings with email-verified accounts",
		Long: `PetAdopt serves a small pet adoption site: people sign up, verify their
email, log in, and post pets for adoption; visitors contact posters by email.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/petadopt/config.yaml if present)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded into the environment if present")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())
	cmd.AddCommand(NewSessionCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig loads the layered configuration, mapping the command's changed
// flags through flagKeys.
func loadConfig(cmd *cobra.Command, flagKeys map[string]string) (config.Config, error) {
	file := configFile
	if file == "" {
		var err error
		if file, err = xdg.ConfigFile(); err != nil {
			return config.Config{}, err
		}
	}
	return config.Load(config.LoadOptions{
		File:     file,
		DotEnv:   envFile,
		Flags:    cmd.Flags(),
		FlagKeys: flagKeys,
	})
}

// setupLogging installs the default logger described by cfg.
func setupLogging(cfg config.Config) *slog.Logger {
	// Validate already rejected unknown levels.
	level, _ := logging.ParseLevel(cfg.Log.Level) //nolint:errcheck // validated by config.Load
	return logging.SetDefault("petadopt", version, cfg.Log.Format, level)
}
