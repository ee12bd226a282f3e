package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/app"
	"fintrack/internal/session"
)

func newLoginCmd(r *runner) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			email = r.ask(out, "Email", email)
			password = r.ask(out, "Password", password)
			resp, err := r.app.Session.LoginWithCredentials(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Signed in as %s <%s>\n", resp.User.Name, resp.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			r.app.Session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		},
	}
}

func newRegisterCmd(r *runner) *cobra.Command {
	var req session.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			req.Name = r.ask(out, "Name", req.Name)
			req.Email = r.ask(out, "Email", req.Email)
			req.Password = r.ask(out, "Password", req.Password)
			req.ConfirmPassword = r.ask(out, "Confirm password", req.ConfirmPassword)
			resp, err := r.app.Session.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			msg := resp.Message
			if msg == "" {
				msg = "Registration successful"
			}
			fmt.Fprintln(out, msg+". You can now sign in.")
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "password, at least 6 characters")
	cmd.Flags().StringVar(&req.ConfirmPassword, "confirm-password", "", "password again")
	return cmd
}

func newWhoamiCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess := r.app.Session.Current()
			if sess == nil {
				return app.ErrNotAuthenticated
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", sess.Name, sess.Email)
			if !sess.TokenExpiry.IsZero() {
				fmt.Fprintln(out, mutedStyle.Render("session expires "+sess.TokenExpiry.Local().Format("2006-01-02 15:04")))
			}
			return nil
		},
	}
}
