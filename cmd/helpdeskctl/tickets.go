package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/helpdesk-io/helpdesk/internal/validate"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

var ticketsCmd = &cobra.Command{
	Use:     "tickets",
	Aliases: []string{"ticket", "t"},
	Short:   "List, show, create and update tickets",
}

var ticketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tickets, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mine, _ := cmd.Flags().GetBool("mine")
		f := protocol.TicketFilter{}
		f.ProjectID, _ = cmd.Flags().GetString("project")
		f.AssignedTo, _ = cmd.Flags().GetString("assignee")
		status, _ := cmd.Flags().GetString("status")
		priority, _ := cmd.Flags().GetString("priority")
		f.Status = protocol.TicketStatus(status)
		f.Priority = protocol.TicketPriority(priority)

		ctx, cancel := requestContext(cmd)
		defer cancel()
		c := newClient()
		var tickets []*protocol.Ticket
		var err error
		if mine {
			tickets, err = c.MyTickets(ctx)
		} else {
			tickets, err = c.Tickets(ctx, f)
		}
		if err != nil {
			return err
		}
		if len(tickets) == 0 {
			fmt.Println(dimStyle.Render("No tickets."))
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, t := range tickets {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				idText(t.ID), statusBadge(t.Status), priorityBadge(t.Priority),
				t.Title, assigneeName(t), dimStyle.Render(ago(t.CreatedAt)))
		}
		w.Flush()
		fmt.Println(dimStyle.Render(plural(len(tickets), "ticket")))
		return nil
	},
}

var ticketsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a ticket and its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		c := newClient()
		t, err := c.Ticket(ctx, args[0])
		if err != nil {
			return err
		}
		comments, err := c.Comments(ctx, t.ID)
		if err != nil {
			return err
		}
		printTicket(t)
		if len(comments) > 0 {
			fmt.Println()
			for _, cm := range comments {
				printComment(cm)
			}
		}
		return nil
	},
}

var ticketsCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Open a ticket",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := validate.CreateTicketRequest{Title: strings.Join(args, " ")}
		req.ProjectID, _ = cmd.Flags().GetString("project")
		req.Description, _ = cmd.Flags().GetString("description")
		req.Priority, _ = cmd.Flags().GetString("priority")
		req.Status, _ = cmd.Flags().GetString("status")
		req.Sizing, _ = cmd.Flags().GetInt("sizing")
		req.AssignedTo, _ = cmd.Flags().GetString("assignee")

		ctx, cancel := requestContext(cmd)
		defer cancel()
		t, err := newClient().CreateTicket(ctx, req)
		if err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}
		success("Created ticket %s: %s", idText(t.ID), t.Title)
		return nil
	},
}

var ticketsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change fields of a ticket",
	Long: `Change fields of a ticket. Only the flags you pass are sent.
Status, priority and assignee changes are recorded as system comments.
Use --unassign to clear the assignee.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var u protocol.TicketUpdate
		flags := cmd.Flags()
		if flags.Changed("title") {
			v, _ := flags.GetString("title")
			u.Title = &v
		}
		if flags.Changed("description") {
			v, _ := flags.GetString("description")
			u.Description = &v
		}
		if flags.Changed("status") {
			v, _ := flags.GetString("status")
			s := protocol.TicketStatus(v)
			u.Status = &s
		}
		if flags.Changed("priority") {
			v, _ := flags.GetString("priority")
			p := protocol.TicketPriority(v)
			u.Priority = &p
		}
		if flags.Changed("sizing") {
			v, _ := flags.GetInt("sizing")
			u.Sizing = &v
		}
		if flags.Changed("assignee") {
			v, _ := flags.GetString("assignee")
			u.AssignedTo = protocol.Ref(v)
		}
		if unassign, _ := flags.GetBool("unassign"); unassign {
			u.AssignedTo = protocol.Ref("")
		}
		if u.Empty() {
			return fmt.Errorf("nothing to update\nHint: pass --status, --priority, --assignee, --title, --description or --sizing")
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()
		t, err := newClient().UpdateTicket(ctx, args[0], u)
		if err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		success("Updated ticket %s", idText(t.ID))
		printTicket(t)
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <ticket-id> <text>",
	Short: "Add a comment to a ticket",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		cm, err := newClient().AddComment(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("add comment: %w", err)
		}
		success("Comment %s added", idText(cm.ID))
		return nil
	},
}

func init() {
	ticketsListCmd.Flags().String("project", "", "Filter by project id")
	ticketsListCmd.Flags().String("assignee", "", "Filter by assignee user id")
	ticketsListCmd.Flags().String("status", "", "Filter by status (Open, In-Progress, In Review, Closed)")
	ticketsListCmd.Flags().String("priority", "", "Filter by priority (Low, Medium, High)")
	ticketsListCmd.Flags().Bool("mine", false, "Only tickets assigned to me")

	ticketsCreateCmd.Flags().String("project", "", "Project id")
	ticketsCreateCmd.Flags().String("description", "", "Description")
	ticketsCreateCmd.Flags().String("priority", "", "Priority (default Medium)")
	ticketsCreateCmd.Flags().String("status", "", "Initial status (default Open)")
	ticketsCreateCmd.Flags().Int("sizing", 0, "Story points (1, 2, 3, 5, 8, 13, 21)")
	ticketsCreateCmd.Flags().String("assignee", "", "Assignee user id")
	ticketsCreateCmd.MarkFlagRequired("project")

	ticketsUpdateCmd.Flags().String("title", "", "New title")
	ticketsUpdateCmd.Flags().String("description", "", "New description")
	ticketsUpdateCmd.Flags().String("status", "", "New status")
	ticketsUpdateCmd.Flags().String("priority", "", "New priority")
	ticketsUpdateCmd.Flags().Int("sizing", 0, "New sizing")
	ticketsUpdateCmd.Flags().String("assignee", "", "New assignee user id")
	ticketsUpdateCmd.Flags().Bool("unassign", false, "Clear the assignee")
	ticketsUpdateCmd.MarkFlagsMutuallyExclusive("assignee", "unassign")

	ticketsCmd.AddCommand(ticketsListCmd, ticketsShowCmd, ticketsCreateCmd, ticketsUpdateCmd)
}

func printTicket(t *protocol.Ticket) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(t.Title) + "\n")
	b.WriteString(statusBadge(t.Status) + " " + priorityBadge(t.Priority) + "\n\n")
	b.WriteString(field("ID", t.ID) + "\n")
	b.WriteString(field("Project", t.Project.Name) + "\n")
	b.WriteString(field("Assignee", assigneeName(t)) + "\n")
	b.WriteString(field("Sizing", fmt.Sprint(t.Sizing)) + "\n")
	b.WriteString(field("Created", ago(t.CreatedAt)) + "\n")
	b.WriteString(field("Updated", ago(t.UpdatedAt)))
	if t.Description != "" {
		b.WriteString("\n\n" + lipgloss.NewStyle().Width(72).Render(t.Description))
	}
	fmt.Println(boxStyle.Render(b.String()))
}

func printComment(c *protocol.Comment) {
	author := c.Author.Username
	if author == "" {
		author = c.Author.ID
	}
	header := titleStyle.Render(author) + " " + dimStyle.Render(ago(c.CreatedAt))
	body := c.Content
	if c.IsSystem {
		body = dimStyle.Render(body)
	}
	fmt.Println(header)
	fmt.Println("  " + body)
}
