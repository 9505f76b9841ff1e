// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Alcove CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alcove",
		Short: "Alcove - authentication gateway for a small content site",
		Long: `Alcove serves a small content site whose protected area is gated by
email/password accounts with server-side sessions, backed by PostgreSQL.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
