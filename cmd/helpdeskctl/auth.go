package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helpdesk-io/helpdesk/internal/validate"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		jobTitle, _ := cmd.Flags().GetString("job-title")
		password, err := passwordFrom(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()
		sess, err := newClient().Register(ctx, validate.RegisterRequest{
			Username: username,
			Email:    email,
			Password: password,
			JobTitle: jobTitle,
		})
		if err != nil {
			return fmt.Errorf("register: %w", err)
		}
		if err := saveToken(sess.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		success("Registered %s (%s)", sess.User.Username, idText(sess.User.ID))
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, err := passwordFrom(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()
		sess, err := newClient().Login(ctx, email, password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		if err := saveToken(sess.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		success("Logged in as %s, session expires %s", sess.User.Username, ago(sess.ExpiresAt))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		if err := newClient().Logout(ctx); err != nil {
			warn("server logout failed: %v", err)
		}
		if err := clearToken(); err != nil {
			return err
		}
		success("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		u, err := newClient().Me(ctx)
		if err != nil {
			return err
		}
		printUser(u)
		return nil
	},
}

func init() {
	registerCmd.Flags().String("username", "", "Username")
	registerCmd.Flags().String("email", "", "Email address")
	registerCmd.Flags().String("job-title", protocol.JobSupportEngineer, "Job title")
	registerCmd.Flags().String("password", "", "Password (read from stdin when omitted)")
	registerCmd.MarkFlagRequired("username")
	registerCmd.MarkFlagRequired("email")

	loginCmd.Flags().String("email", "", "Email address")
	loginCmd.Flags().String("password", "", "Password (read from stdin when omitted)")
	loginCmd.MarkFlagRequired("email")
}

// passwordFrom returns --password, or the first line of stdin.
func passwordFrom(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printUser(u *protocol.User) {
	fmt.Println(titleStyle.Render(u.Username) + " " + dimStyle.Render(u.ID))
	fmt.Println(field("Email", u.Email))
	fmt.Println(field("Job title", u.JobTitle))
	role := "member"
	if u.IsAdmin {
		role = "admin"
	}
	fmt.Println(field("Role", role))
	if !u.IsActive {
		fmt.Println(field("Status", dimStyle.Render("inactive")))
	}
	fmt.Println(field("Joined", ago(u.CreatedAt)))
}
