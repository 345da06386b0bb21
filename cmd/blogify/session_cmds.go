package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/blogify/internal/state"
	"github.com/pders01/blogify/internal/tui"
	"github.com/pders01/blogify/internal/validation"
)

type credentialFlags struct {
	username string
	email    string
	password string
}

var creds credentialFlags

func addSessionCommands(root *cobra.Command) {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}
	loginCmd.Flags().StringVar(&creds.email, "email", "", "Account email")
	loginCmd.Flags().StringVar(&creds.password, "password", "", "Account password")

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE:  runRegister,
	}
	registerCmd.Flags().StringVar(&creds.username, "username", "", "Username")
	registerCmd.Flags().StringVar(&creds.email, "email", "", "Account email")
	registerCmd.Flags().StringVar(&creds.password, "password", "", "Password (at least 6 characters)")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			e.session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), tui.MsgSignedOut)
			return nil
		},
	}

	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}

	root.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

// formError turns local validation messages into one error, a line per field.
func formError(fields map[string][]string) error {
	return errors.New(strings.Join(state.FieldErrors(fields).Lines(), "\n"))
}

func runLogin(cmd *cobra.Command, args []string) error {
	form := validation.LoginForm{Email: creds.email, Password: creds.password}
	if fields, err := validation.Validate(&form); err != nil {
		return err
	} else if fields != nil {
		return formError(fields)
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := e.session.Login(cmd.Context(), form.Email, form.Password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.MsgWelcome(user.Username))
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	form := validation.RegisterForm{Username: creds.username, Email: creds.email, Password: creds.password}
	if fields, err := validation.Validate(&form); err != nil {
		return err
	} else if fields != nil {
		return formError(fields)
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := e.session.Register(cmd.Context(), form.Username, form.Email, form.Password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.MsgWelcome(user.Username))
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	if !e.session.IsAuthenticated() {
		fmt.Fprintln(out, "Not signed in")
		return nil
	}

	user, err := e.session.GetCurrentUser(cmd.Context())
	if err != nil {
		return fmt.Errorf("%w (stored session removed)", err)
	}
	fmt.Fprintf(out, "%s <%s>\n", user.Username, user.Email)
	if user.Bio != "" {
		fmt.Fprintln(out, user.Bio)
	}
	return nil
}
