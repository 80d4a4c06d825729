// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// serviceName labels log records and is the XDG application directory.
const serviceName = "neighborwatch"

// NewRootCmd creates the root command for the neighborwatch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "neighborwatch",
		Short: "Neighborhood Watch - community security accounts",
		Long: `Neighborhood Watch runs the account service for a community security
portal. It handles registration with email verification, role-based
login, and guarding of each role's dashboard.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAdminCmd())
	cmd.AddCommand(NewClientCmd())
	cmd.AddCommand(NewPolicyCmd())

	return cmd
}
