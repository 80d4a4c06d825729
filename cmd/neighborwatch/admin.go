// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/config"
)

// NewAdminCmd creates the admin command group.
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage accounts directly against the database",
	}
	cmd.AddCommand(newAdminCreateCmd(nil))
	cmd.AddCommand(newAdminSetStatusCmd(nil))
	return cmd
}

func newAdminCreateCmd(deps *AdminDeps) *cobra.Command {
	var reg auth.Registration

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the first admin account",
		Long: `Create an active admin account. Admins cannot register through the
API, so the first one is created here. Running it again for an existing
email changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, nil)
			if err != nil {
				return err
			}
			return runAdminCreate(cmd.Context(), cfg, cmd, reg, deps)
		},
	}

	cmd.Flags().StringVar(&reg.Email, "email", "", "admin email address")
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&reg.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&reg.Address, "address", "", "street address")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag defined above

	return cmd
}

func newAdminSetStatusCmd(deps *AdminDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <email> <pending|active|suspended>",
		Short: "Approve, suspend or reinstate an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, nil)
			if err != nil {
				return err
			}
			return runAdminSetStatus(cmd.Context(), cfg, cmd, args[0], args[1], deps)
		},
	}
}

// withAdminDefaults returns a copy of deps with unset fields filled in.
func withAdminDefaults(deps *AdminDeps, cmd *cobra.Command) *AdminDeps {
	filled := AdminDeps{}
	if deps != nil {
		filled = *deps
	}
	deps = &filled
	if deps.BackendFactory == nil {
		deps.BackendFactory = openBackend
	}
	if deps.PasswordReader == nil {
		deps.PasswordReader = passwordPrompter(cmd)
	}
	return deps
}

// adminService opens the backend and the service over it. The caller closes the backend.
func adminService(ctx context.Context, cfg *config.Config, deps *AdminDeps) (*auth.Service, *Backend, error) {
	logger := slog.Default()
	backend, err := deps.BackendFactory(ctx, cfg)
	if err != nil {
		return nil, nil, oops.Code("BACKEND_OPEN_FAILED").With("driver", cfg.Database.Driver).Wrap(err)
	}
	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		_ = backend.Close() //nolint:errcheck // setup error wins
		return nil, nil, err
	}
	svc, err := newService(cfg, backend, notifier, logger)
	if err != nil {
		_ = backend.Close() //nolint:errcheck // setup error wins
		return nil, nil, err
	}
	return svc, backend, nil
}

func runAdminCreate(ctx context.Context, cfg *config.Config, cmd *cobra.Command, reg auth.Registration, deps *AdminDeps) error {
	deps = withAdminDefaults(deps, cmd)
	password, err := deps.PasswordReader("Password: ")
	if err != nil {
		return err
	}
	confirm, err := deps.PasswordReader("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return oops.Code("PASSWORD_MISMATCH").Errorf("passwords do not match")
	}
	reg.Password = password
	reg.Role = auth.RoleAdmin

	svc, backend, err := adminService(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer backend.Close() //nolint:errcheck // nothing to do on close failure

	profile, created, err := svc.CreateAdmin(ctx, reg)
	if err != nil {
		return err
	}
	if !created {
		cmd.Printf("Admin %s already exists\n", profile.Email)
		return nil
	}
	cmd.Printf("Created admin %s (%s)\n", profile.Email, profile.ID)
	return nil
}

func runAdminSetStatus(ctx context.Context, cfg *config.Config, cmd *cobra.Command, email, status string, deps *AdminDeps) error {
	deps = withAdminDefaults(deps, cmd)
	target, err := auth.ParseStatus(status)
	if err != nil {
		return err
	}

	svc, backend, err := adminService(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer backend.Close() //nolint:errcheck // nothing to do on close failure

	user, err := backend.Users.GetByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		return oops.With("email", email).Wrap(err)
	}

	// The operator acts as an admin whose user ID matches no account.
	profile, err := svc.SetStatus(ctx, syntheticSession(auth.RoleAdmin, true), user.ID, target)
	if err != nil {
		return err
	}
	cmd.Printf("%s is now %s\n", profile.Email, profile.Status)
	return nil
}
