package main

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

var (
	colorOpen     = lipgloss.Color("#7aa2f7")
	colorProgress = lipgloss.Color("#e0af68")
	colorReview   = lipgloss.Color("#bb9af7")
	colorClosed   = lipgloss.Color("#565f89")
	colorHigh     = lipgloss.Color("#f7768e")
	colorMedium   = lipgloss.Color("#e0af68")
	colorLow      = lipgloss.Color("#9ece6a")

	badgeStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("#1a1b26"))
	dimStyle   = lipgloss.NewStyle().Foreground(colorClosed)
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(colorClosed).Width(12)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#3b4261")).Padding(0, 1)
)

func statusBadge(s protocol.TicketStatus) string {
	c := colorOpen
	switch s {
	case protocol.StatusInProgress:
		c = colorProgress
	case protocol.StatusInReview:
		c = colorReview
	case protocol.StatusClosed:
		c = colorClosed
	}
	return badgeStyle.Background(c).Render(string(s))
}

func priorityBadge(p protocol.TicketPriority) string {
	c := colorMedium
	switch p {
	case protocol.PriorityHigh:
		c = colorHigh
	case protocol.PriorityLow:
		c = colorLow
	}
	return lipgloss.NewStyle().Foreground(c).Render(string(p))
}

func assigneeName(t *protocol.Ticket) string {
	if t.AssignedTo == nil {
		return dimStyle.Render("unassigned")
	}
	if t.AssignedTo.Username != "" {
		return t.AssignedTo.Username
	}
	return t.AssignedTo.ID
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func field(label, value string) string {
	return labelStyle.Render(label) + value
}

func success(format string, args ...any) {
	color.New(color.FgGreen).Printf("✓ "+format+"\n", args...)
}

func warn(format string, args ...any) {
	color.New(color.FgYellow).Printf("! "+format+"\n", args...)
}

func idText(id string) string {
	return color.New(color.FgCyan).Sprint(id)
}

func plural(n int, word string) string {
	return english.Plural(n, word, "")
}
