package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCommand(e *env) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if email == "" {
				fmt.Fprint(e.out, "Email: ")
				if email, err = e.readLine(); err != nil {
					return err
				}
			}
			if password == "" {
				fmt.Fprint(e.out, "Password: ")
				if password, err = e.readLine(); err != nil {
					return err
				}
			}
			email = strings.TrimSpace(email)
			if email == "" || password == "" {
				return errors.New("email and password are required")
			}

			user, err := e.api.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			e.log.Info("signed in", "email", user.Email)
			fmt.Fprintf(e.out, "Signed in as %s (%s)\n", user.Name, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !e.session.Authenticated() {
				fmt.Fprintln(e.out, "Not signed in")
				return nil
			}
			if err := e.api.Logout(cmd.Context()); err != nil {
				e.log.Warn("server logout failed; local session cleared", "error", err)
			}
			fmt.Fprintln(e.out, "Signed out")
			return nil
		},
	}
}

func newWhoamiCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := e.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			if e.jsonOut {
				return writeJSON(e.out, user)
			}
			fmt.Fprintf(e.out, "%s (%s)\n", user.Name, user.Email)
			return nil
		},
	}
}
