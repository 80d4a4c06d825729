// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/client"
)

// defaultServerURL is where the client commands look for the API.
const defaultServerURL = "http://localhost:8080"

// clientOptions are the flags shared by the client commands.
type clientOptions struct {
	server      string
	sessionFile string
	password    func(prompt string) (string, error)
}

func (o *clientOptions) api() (*client.Client, error) {
	return client.New(o.server, nil)
}

func (o *clientOptions) holder() (*client.SessionHolder, error) {
	if o.sessionFile != "" {
		return client.NewSessionHolder(o.sessionFile), nil
	}
	return client.DefaultSessionHolder()
}

func (o *clientOptions) readPassword(cmd *cobra.Command, prompt string) (string, error) {
	if o.password != nil {
		return o.password(prompt)
	}
	return passwordPrompter(cmd)(prompt)
}

// NewClientCmd creates the client command group, which talks to a running
// server and keeps the login in a local session file.
func NewClientCmd() *cobra.Command {
	return newClientCmd(&clientOptions{})
}

func newClientCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Use the auth API from the command line",
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", defaultServerURL, "API base URL")
	cmd.PersistentFlags().StringVar(&opts.sessionFile, "session-file", "", "session file (default XDG config dir)")

	cmd.AddCommand(newClientRegisterCmd(opts))
	cmd.AddCommand(newClientLoginCmd(opts))
	cmd.AddCommand(newClientLogoutCmd(opts))
	cmd.AddCommand(newClientWhoamiCmd(opts))
	cmd.AddCommand(newClientEmailCmd(opts, "forgot-password", "Request a password reset link",
		func(ctx context.Context, c *client.Client, email string) (string, error) {
			resp, err := c.ForgotPassword(ctx, email)
			if err != nil {
				return "", err
			}
			return resp.Message, nil
		}))
	cmd.AddCommand(newClientEmailCmd(opts, "resend-verification", "Request a new verification link",
		func(ctx context.Context, c *client.Client, email string) (string, error) {
			resp, err := c.ResendVerification(ctx, email)
			if err != nil {
				return "", err
			}
			return resp.Message, nil
		}))
	cmd.AddCommand(newClientDashboardCmd(opts))
	cmd.AddCommand(newClientWatchCmd(opts))
	return cmd
}

func newClientRegisterCmd(opts *clientOptions) *cobra.Command {
	var reg auth.Registration
	var role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := opts.api()
			if err != nil {
				return err
			}
			if reg.Password, err = opts.readPassword(cmd, "Password: "); err != nil {
				return err
			}
			reg.Role = auth.Role(role)

			resp, err := api.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			cmd.Println(resp.Message)
			if resp.User != nil {
				cmd.Printf("Account %s is %s\n", resp.User.Email, resp.User.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.Email, "email", "", "email address")
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&reg.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&reg.Address, "address", "", "street address")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleMember), "account type (member, security)")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag defined above
	return cmd
}

func newClientLoginCmd(opts *clientOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := opts.api()
			if err != nil {
				return err
			}
			holder, err := opts.holder()
			if err != nil {
				return err
			}
			password, err := opts.readPassword(cmd, "Password: ")
			if err != nil {
				return err
			}

			result, err := api.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := holder.Save(client.SessionFromLogin(result)); err != nil {
				return err
			}
			cmd.Println(result.Message)
			if result.User != nil {
				cmd.Printf("Logged in as %s (%s)\n", result.User.Email, result.User.Role)
			}
			if result.Redirect != "" {
				cmd.Println("Dashboard:", result.Redirect)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag defined above
	return cmd
}

func newClientLogoutCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			holder, err := opts.holder()
			if err != nil {
				return err
			}
			session, err := holder.Load()
			if err != nil {
				if clearErr := holder.Clear(); clearErr != nil {
					return clearErr
				}
				cmd.PrintErrln("Discarded unreadable session file:", err)
				cmd.Println("Logged out")
				return nil
			}
			if session == nil {
				cmd.Println("Not logged in")
				return nil
			}

			api, err := opts.api()
			if err != nil {
				return err
			}
			// The local session is cleared even when the server is unreachable.
			logoutErr := api.Logout(cmd.Context(), session.Token)
			if err := holder.Clear(); err != nil {
				return err
			}
			var apiErr *client.APIError
			if logoutErr != nil && !errors.As(logoutErr, &apiErr) {
				cmd.PrintErrln("Logged out locally; server not reached:", logoutErr)
				return nil
			}
			cmd.Println("Logged out")
			return nil
		},
	}
}

func newClientWhoamiCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			holder, err := opts.holder()
			if err != nil {
				return err
			}
			session, err := holder.Load()
			if err != nil {
				return err
			}
			if session == nil || session.Expired() {
				cmd.Println("Not logged in")
				return nil
			}

			api, err := opts.api()
			if err != nil {
				return err
			}
			profile, err := api.Me(cmd.Context(), session.Token)
			if err != nil {
				return err
			}
			if profile == nil {
				if err := holder.Clear(); err != nil {
					return err
				}
				cmd.Println("Not logged in")
				return nil
			}

			session.User = profile
			session.Role = profile.Role
			session.EmailVerified = profile.EmailVerified
			if err := holder.Save(session); err != nil {
				return err
			}
			cmd.Printf("%s <%s>\n", profile.DisplayName, profile.Email)
			cmd.Printf("Role: %s\nStatus: %s\nVerified: %t\n", profile.Role, profile.Status, profile.EmailVerified)
			return nil
		},
	}
}

func newClientEmailCmd(opts *clientOptions, use, short string, call func(context.Context, *client.Client, string) (string, error)) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := opts.api()
			if err != nil {
				return err
			}
			msg, err := call(cmd.Context(), api, email)
			if err != nil {
				return err
			}
			cmd.Println(msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag defined above
	return cmd
}

func newClientDashboardCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard <admin|security|member>",
		Short: "Open a role's dashboard",
		Long: `Open a role's dashboard. The saved session is checked first, the same
way the server guards the route, so a denied request is never sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := auth.ParseRole(args[0])
			if err != nil {
				return err
			}
			holder, err := opts.holder()
			if err != nil {
				return err
			}
			session, err := holder.Load()
			if err != nil {
				return err
			}

			decision := session.Check(role)
			if !decision.Allow {
				cmd.Println("Access denied, redirect to", decision.Redirect)
				return oops.Code("ACCESS_DENIED").With("reason", string(decision.Reason)).
					Errorf("%s dashboard requires a verified %s login", role, role)
			}

			api, err := opts.api()
			if err != nil {
				return err
			}
			resp, err := api.Dashboard(cmd.Context(), session.Token, role)
			if err != nil {
				return err
			}
			cmd.Println(resp.Message)
			return nil
		},
	}
}

func newClientWatchCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print login and logout events from other terminals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			holder, err := opts.holder()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cmd.Println("Watching", holder.Path())
			return holder.Watch(ctx, func(s *client.Session) {
				if s == nil || !s.Authenticated {
					cmd.Println("logged out")
					return
				}
				cmd.Printf("logged in as %s (%s)\n", s.UserID, s.Role)
			})
		},
	}
}
