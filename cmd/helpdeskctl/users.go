package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

var usersCmd = &cobra.Command{
	Use:     "users",
	Aliases: []string{"user", "u"},
	Short:   "Find and administer users",
}

var usersSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search users by username or email",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		users, err := newClient().SearchUsers(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printUsers(cmd, users)
	},
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users (admin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		users, err := newClient().ListUsers(ctx)
		if err != nil {
			return err
		}
		return printUsers(cmd, users)
	},
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a user's job title, role or active flag (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var u protocol.UserUpdate
		flags := cmd.Flags()
		if flags.Changed("job-title") {
			v, _ := flags.GetString("job-title")
			u.JobTitle = &v
		}
		if flags.Changed("admin") {
			v, _ := flags.GetBool("admin")
			u.IsAdmin = &v
		}
		if flags.Changed("active") {
			v, _ := flags.GetBool("active")
			u.IsActive = &v
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()
		updated, err := newClient().UpdateUser(ctx, args[0], u)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		success("Updated %s", updated.Username)
		printUser(updated)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent daemon log entries (admin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("level")
		component, _ := cmd.Flags().GetString("component")
		limit, _ := cmd.Flags().GetInt("limit")

		ctx, cancel := requestContext(cmd)
		defer cancel()
		entries, err := newClient().Logs(ctx, level, component, limit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			comp := ""
			if e.Component != "" {
				comp = idText("[" + e.Component + "] ")
			}
			fmt.Printf("%s %-5s %s%s", dimStyle.Render(e.Time.Format("15:04:05")), e.Level, comp, e.Message)
			for k, v := range e.Attrs {
				fmt.Printf(" %s=%v", dimStyle.Render(k), v)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	usersUpdateCmd.Flags().String("job-title", "", "Job title")
	usersUpdateCmd.Flags().Bool("admin", false, "Grant or revoke admin")
	usersUpdateCmd.Flags().Bool("active", true, "Activate or deactivate the account")

	logsCmd.Flags().String("level", "", "Minimum level (debug, info, warn, error)")
	logsCmd.Flags().String("component", "", "Only entries from this component")
	logsCmd.Flags().Int("limit", 50, "Maximum entries")

	usersCmd.AddCommand(usersSearchCmd, usersListCmd, usersUpdateCmd)
}

func printUsers(cmd *cobra.Command, users []*protocol.User) error {
	if len(users) == 0 {
		fmt.Println(dimStyle.Render("No users."))
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, u := range users {
		flags := ""
		if u.IsAdmin {
			flags += " admin"
		}
		if !u.IsActive {
			flags += " inactive"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", idText(u.ID), u.Username, u.Email, u.JobTitle, dimStyle.Render(strings.TrimSpace(flags)))
	}
	return w.Flush()
}
