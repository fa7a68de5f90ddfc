package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project", "p"},
	Short:   "Manage projects and their members",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects you are a member of",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		projects, err := newClient().Projects(ctx)
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println(dimStyle.Render("No projects."))
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%s\n", idText(p.ID), titleStyle.Render(p.Name), dimStyle.Render(plural(len(p.Members), "member")))
		}
		return w.Flush()
	},
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a project and its members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		p, err := newClient().Project(ctx, args[0])
		if err != nil {
			return err
		}
		printProject(p)
		return nil
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project with yourself as the first member",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		ctx, cancel := requestContext(cmd)
		defer cancel()
		p, err := newClient().CreateProject(ctx, strings.Join(args, " "), description)
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		success("Created project %s: %s", idText(p.ID), p.Name)
		return nil
	},
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Add or remove project members",
}

var membersAddCmd = &cobra.Command{
	Use:   "add <project-id> <user-id>",
	Short: "Add a user to a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		p, err := newClient().AddMember(ctx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("add member: %w", err)
		}
		success("%s now has %s", p.Name, plural(len(p.Members), "member"))
		return nil
	},
}

var membersRemoveCmd = &cobra.Command{
	Use:   "remove <project-id> <user-id>",
	Short: "Remove a user from a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		p, err := newClient().RemoveMember(ctx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("remove member: %w", err)
		}
		success("%s now has %s", p.Name, plural(len(p.Members), "member"))
		return nil
	},
}

func init() {
	projectsCreateCmd.Flags().String("description", "", "Project description")

	membersCmd.AddCommand(membersAddCmd, membersRemoveCmd)
	projectsCmd.AddCommand(projectsListCmd, projectsShowCmd, projectsCreateCmd, membersCmd)
}

func printProject(p *protocol.Project) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Name) + "\n")
	b.WriteString(field("ID", p.ID) + "\n")
	b.WriteString(field("Created", ago(p.CreatedAt)))
	if p.Description != "" {
		b.WriteString("\n\n" + p.Description)
	}
	b.WriteString("\n\n" + titleStyle.Render("Members"))
	for _, m := range p.Members {
		line := "\n  " + m.Username + " " + dimStyle.Render(m.ID)
		if m.JobTitle != "" {
			line += " " + dimStyle.Render("("+m.JobTitle+")")
		}
		b.WriteString(line)
	}
	fmt.Println(boxStyle.Render(b.String()))
}
