// Package digest summarizes open tickets for periodic delivery to chat.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// MaxUrgent caps the unassigned high-priority tickets listed.
const MaxUrgent = 5

// Source lists tickets.
type Source interface {
	ListTickets(ctx context.Context, f protocol.TicketFilter) ([]*protocol.Ticket, error)
}

// Notifier delivers the formatted digest.
type Notifier interface {
	Notify(ctx context.Context, markdown string) error
}

// ProjectSummary counts one project's open tickets by status.
type ProjectSummary struct {
	ID     string
	Name   string
	Total  int
	Counts map[protocol.TicketStatus]int
}

// Digest is a snapshot of every ticket that is not Closed.
type Digest struct {
	GeneratedAt time.Time
	Open        int
	Projects    []ProjectSummary   // most open tickets first
	Urgent      []*protocol.Ticket // unassigned High, oldest first
}

// Build reads tickets from src and summarizes the ones not Closed.
func Build(ctx context.Context, src Source, now time.Time) (*Digest, error) {
	tickets, err := src.ListTickets(ctx, protocol.TicketFilter{})
	if err != nil {
		return nil, fmt.Errorf("digest: list tickets: %w", err)
	}

	d := &Digest{GeneratedAt: now}
	byProject := map[string]*ProjectSummary{}
	for _, t := range tickets {
		if t.Status == protocol.StatusClosed {
			continue
		}
		d.Open++

		ps, ok := byProject[t.Project.ID]
		if !ok {
			name := t.Project.Name
			if name == "" {
				name = t.Project.ID
			}
			ps = &ProjectSummary{ID: t.Project.ID, Name: name, Counts: map[protocol.TicketStatus]int{}}
			byProject[t.Project.ID] = ps
		}
		ps.Total++
		ps.Counts[t.Status]++

		if t.Priority == protocol.PriorityHigh && t.AssignedTo == nil {
			d.Urgent = append(d.Urgent, t)
		}
	}

	for _, ps := range byProject {
		d.Projects = append(d.Projects, *ps)
	}
	sort.Slice(d.Projects, func(i, j int) bool {
		if d.Projects[i].Total != d.Projects[j].Total {
			return d.Projects[i].Total > d.Projects[j].Total
		}
		return d.Projects[i].Name < d.Projects[j].Name
	})

	sort.SliceStable(d.Urgent, func(i, j int) bool {
		return d.Urgent[i].CreatedAt.Before(d.Urgent[j].CreatedAt)
	})
	if len(d.Urgent) > MaxUrgent {
		d.Urgent = d.Urgent[:MaxUrgent]
	}
	return d, nil
}

// Markdown renders the digest for chat sinks.
func (d *Digest) Markdown() string {
	if d.Open == 0 {
		return "**Help desk digest**: no open tickets"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Help desk digest**: %s in %s\n",
		english.Plural(d.Open, "open ticket", ""),
		english.Plural(len(d.Projects), "project", ""))

	for _, p := range d.Projects {
		var parts []string
		for _, s := range protocol.Statuses {
			if n := p.Counts[s]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s %s", s, humanize.Comma(int64(n))))
			}
		}
		fmt.Fprintf(&b, "\n**%s**: %s (%s)", p.Name, humanize.Comma(int64(p.Total)), strings.Join(parts, ", "))
	}

	if len(d.Urgent) > 0 {
		b.WriteString("\n\n**Unassigned, high priority**")
		for _, t := range d.Urgent {
			fmt.Fprintf(&b, "\n- %s (%s), opened %s", t.Title, t.Project.Name,
				humanize.RelTime(t.CreatedAt, d.GeneratedAt, "ago", "from now"))
		}
	}
	return b.String()
}

// Job builds and sends the digest on each run.
type Job struct {
	src    Source
	out    Notifier
	logger *slog.Logger
	now    func() time.Time
}

// NewJob creates a Job. A nil logger uses slog.Default().
func NewJob(src Source, out Notifier, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		src:    src,
		out:    out,
		logger: logger.With("component", "digest"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run builds the digest and sends it. Errors are logged.
func (j *Job) Run(ctx context.Context) {
	d, err := Build(ctx, j.src, j.now())
	if err != nil {
		j.logger.Error("digest build failed", "error", err)
		return
	}
	if err := j.out.Notify(ctx, d.Markdown()); err != nil {
		j.logger.Warn("digest delivery incomplete", "error", err)
		return
	}
	j.logger.Info("digest sent", "open", d.Open, "projects", len(d.Projects), "urgent", len(d.Urgent))
}
