// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package main

import (
	"github.com/spf13/cobra"

	"github.com/x4vfs/x4vfs"
)

// rootFlags holds flags shared by every subcommand.
type rootFlags struct {
	configPath    string
	developerMode bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "x4vfs",
		Short: "Layered virtual file system and XML diff toolkit for X4 Foundations extensions",
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a TOML configuration file")
	cmd.PersistentFlags().BoolVar(&flags.developerMode, "dev", false, "enable developer-mode logging")

	cmd.AddCommand(
		newBuildCmd(flags),
		newCheckCmd(flags),
		newCatCmd(),
		newDatCmd(),
	)

	return cmd
}

// loadConfigAndLogger is the common startup sequence every subcommand uses.
func loadConfigAndLogger(flags *rootFlags) (*x4vfs.Config, x4vfs.Logger, error) {
	cfg, err := x4vfs.LoadConfig(flags.configPath)
	if err != nil {
		return nil, nil, err
	}
	if flags.developerMode {
		cfg.DeveloperMode = true
	}

	log := x4vfs.NewLogger(nil, cfg.DeveloperMode)
	return cfg, log, nil
}
