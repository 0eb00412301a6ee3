package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/66gu1/thesisportal/internal/app/authz"
	"github.com/66gu1/thesisportal/internal/app/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const envPassword = "PORTAL_PASSWORD"

var errNotSignedIn = errors.New("not signed in, run `portal login` first")

// withApp builds the app for a one-shot command. The token lives in the state dir
// between invocations.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(c.cfg, afero.NewOsFs())
	if err != nil {
		return err
	}

	return fn(log.Logger.WithContext(cmd.Context()), a)
}

// signedIn restores the session and fails when there is none.
func signedIn(ctx context.Context, a *app) error {
	state, err := a.manager.Bootstrap(ctx)
	if err != nil {
		return err
	}
	if state != session.StateAuthenticated {
		return errNotSignedIn
	}
	return nil
}

func newLoginCmd(c *cli) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv(envPassword)
			}

			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				s, err := a.manager.Login(ctx, email, password)
				if err != nil {
					var authErr *session.AuthenticationError
					if errors.As(err, &authErr) {
						return errors.New(authErr.Message())
					}
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s <%s>\n", s.Profile.Name, s.Profile.Email)
				printRoles(cmd.OutOrStdout(), s.Profile)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (default $"+envPassword+")")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End this session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if _, err := a.manager.Bootstrap(ctx); err != nil {
					log.Debug().Err(err).Msg("logout: bootstrap")
				}
				a.manager.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func newLogoutAllCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout-all",
		Short: "End every session of the account, on all devices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := signedIn(ctx, a); err != nil {
					return err
				}
				if err := a.manager.LogoutAllDevices(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "signed out on all devices")
				return nil
			})
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := signedIn(ctx, a); err != nil {
					return err
				}

				s, _ := a.manager.Current()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s <%s>\n", s.Profile.Name, s.Profile.Email)
				if s.SessionID != uuid.Nil {
					fmt.Fprintf(out, "session %s\n", s.SessionID)
				}
				if !s.ExpiresAt.IsZero() {
					fmt.Fprintf(out, "token expires %s\n", s.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
				}
				printRoles(out, s.Profile)
				return nil
			})
		},
	}
}

// rolesFor returns the role IDs named by --role, or those of the signed-in user.
func rolesFor(ctx context.Context, a *app, names []string) ([]authz.RoleID, error) {
	if len(names) > 0 {
		ids := make([]authz.RoleID, 0, len(names))
		for _, name := range names {
			id, err := a.resolver.RoleByName(name)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	if err := signedIn(ctx, a); err != nil {
		return nil, err
	}
	profile, _ := a.manager.CurrentProfile()
	return authz.RoleIDs(profile.RoleIDs()), nil
}

func newPagesCmd(c *cli) *cobra.Command {
	var roles []string

	cmd := &cobra.Command{
		Use:   "pages [page]",
		Short: "List the pages the user may open, or check one page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				ids, err := rolesFor(ctx, a, roles)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(args) == 1 {
					d := a.resolver.Guard(authz.Subject{Authenticated: true, Roles: ids}, authz.PageID(args[0]))
					if d.State == authz.GuardAuthorized {
						fmt.Fprintf(out, "%s: allowed\n", d.Page)
					} else {
						fmt.Fprintf(out, "%s: denied, redirect to %s\n", d.Page, d.RedirectPage)
					}
					return nil
				}

				for _, page := range a.resolver.AllowedPages(ids) {
					fmt.Fprintln(out, page)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&roles, "role", nil, "evaluate for these role names instead of the signed-in user")

	return cmd
}

func newMenuCmd(c *cli) *cobra.Command {
	var roles []string

	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Show the navigation menu for the user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				ids, err := rolesFor(ctx, a, roles)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, item := range a.resolver.VisibleMenuItems(ids) {
					fmt.Fprintf(w, "%s\t%s\n", item.Label, item.Path)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringSliceVar(&roles, "role", nil, "evaluate for these role names instead of the signed-in user")

	return cmd
}

func newSessionsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List the active sessions of the account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := signedIn(ctx, a); err != nil {
					return err
				}
				sessions, err := a.manager.ListSessions(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCREATED\tEXPIRES\tCLIENT\t")
				for _, s := range sessions {
					marker := lo.Ternary(s.Current, "*", "")
					fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t\n",
						s.ID, marker,
						s.CreatedAt.Local().Format("2006-01-02 15:04"),
						s.ExpiresAt.Local().Format("2006-01-02 15:04"),
						strings.TrimSpace(s.UserAgent+" "+s.IP))
				}
				return w.Flush()
			})
		},
	}
}

func newRevokeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <session-id>",
		Short: "End one session of the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid session id %q: %w", args[0], err)
			}

			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := signedIn(ctx, a); err != nil {
					return err
				}
				if err := a.manager.LogoutDevice(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "session %s revoked\n", id)
				return nil
			})
		},
	}
}

func newForgotPasswordCmd(c *cli) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.manager.ForgotPassword(ctx, email); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "if %s is registered, a reset link is on its way\n", email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func printRoles(w io.Writer, p session.Profile) {
	names := lo.Map(p.Roles, func(r session.Role, _ int) string { return r.Name })
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(w, "roles: %s\n", strings.Join(names, ", "))
}
