// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package main

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/guard"
)

// NewPolicyCmd creates the policy command group.
func NewPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and validate authorization policies",
	}
	cmd.AddCommand(newPolicyValidateCmd())
	cmd.AddCommand(newPolicySchemaCmd())
	cmd.AddCommand(newPolicyCheckCmd())
	return cmd
}

func newPolicyValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a policy file against the schema and compile it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := guard.LoadPolicy(args[0])
			if err != nil {
				return err
			}
			if _, err := guard.NewTable(policy); err != nil {
				return err
			}
			cmd.Printf("%s: valid (version %s, %d rules)\n", args[0], policy.Version, len(policy.Rules))
			return nil
		},
	}
}

func newPolicySchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the policy JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := guard.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(schema))
			return nil
		},
	}
}

func newPolicyCheckCmd() *cobra.Command {
	var file, role string
	var unverified bool

	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Show the decision for a role requesting a path",
		Long: `Show what the guard decides for a request to path. Without --role the
request is anonymous.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(file)
			if err != nil {
				return err
			}

			var sc *auth.SessionContext
			if role != "" {
				r, err := auth.ParseRole(role)
				if err != nil {
					return err
				}
				sc = syntheticSession(r, !unverified)
			}

			decision := table.Authorize(sc, args[0])
			if decision.Allow {
				cmd.Printf("allow (%s)\n", decision.Reason)
				return nil
			}
			cmd.Printf("deny (%s), redirect to %s\n", decision.Reason, decision.Redirect)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "policy file (default built-in)")
	cmd.Flags().StringVar(&role, "role", "", "role of the requester")
	cmd.Flags().BoolVar(&unverified, "unverified", false, "treat the requester's email as unverified")
	return cmd
}

func syntheticSession(role auth.Role, verified bool) *auth.SessionContext {
	now := time.Now()
	return &auth.SessionContext{
		Session: &auth.Session{
			ID:            ulid.Make(),
			Role:          role,
			EmailVerified: verified,
			CreatedAt:     now,
			ExpiresAt:     now.Add(time.Minute),
		},
		User: auth.Profile{Role: role, Status: auth.StatusActive, EmailVerified: verified},
	}
}
